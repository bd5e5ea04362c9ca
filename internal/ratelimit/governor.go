package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Governor is an in-process per-IP token bucket, replacing the Rust
// original's `governor` crate with golang.org/x/time/rate. It exists
// alongside the Redis sliding window as a cheap first line of defense that
// survives even if Redis is briefly unreachable, matching
// _examples/original_source/server/src/security/governor_rate_limiter.rs.
type Governor struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func NewGovernor(rps float64, burst int) *Governor {
	return &Governor{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether ip may make one more request right now.
func (g *Governor) Allow(ip string) bool {
	g.mu.Lock()
	limiter, ok := g.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(g.rps, g.burst)
		g.limiters[ip] = limiter
	}
	g.mu.Unlock()
	return limiter.Allow()
}
