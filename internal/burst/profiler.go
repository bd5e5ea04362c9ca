// Package burst detects bot-like fan-out across endpoints: a single
// composite key hitting many distinct routes within a short window.
// Grounded on
// _examples/original_source/server/src/security/burst_profiler.rs.
package burst

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/roomline/chatgate/internal/kv"
)

// Profile configures the fan-out window and threshold.
type Profile struct {
	Window    time.Duration
	Threshold int
	KeyTTL    time.Duration
}

type Profiler struct {
	store   kv.Store
	profile Profile
	clock   func() time.Time
}

func New(store kv.Store, profile Profile) *Profiler {
	return &Profiler{store: store, profile: profile, clock: time.Now}
}

// Stats reports the endpoint fan-out observed for a key.
type Stats struct {
	TotalRequests   int
	UniqueEndpoints int
	Suspicious      bool
}

// CheckBurst records one endpoint hit and reports whether the key has
// fanned out across enough distinct endpoints in the window to look like a
// bot probing the API.
func (p *Profiler) CheckBurst(ctx context.Context, compositeKey, endpoint string) (bool, error) {
	key := burstKey(compositeKey)
	now := p.clock()
	nowMs := float64(now.UnixMilli())

	if err := p.store.ZAdd(ctx, key, nowMs, endpoint); err != nil {
		return false, fmt.Errorf("burst: record hit: %w", err)
	}
	windowStart := nowMs - float64(p.profile.Window.Milliseconds())
	if err := p.store.ZRemRangeByScore(ctx, key, 0, windowStart); err != nil {
		return false, fmt.Errorf("burst: purge window: %w", err)
	}
	if err := p.store.Expire(ctx, key, p.profile.KeyTTL); err != nil {
		return false, fmt.Errorf("burst: refresh ttl: %w", err)
	}

	stats, err := p.statsFor(ctx, key)
	if err != nil {
		return false, err
	}
	if stats.Suspicious {
		log.Warn().
			Str("composite_key", compositeKey).
			Int("unique_endpoints", stats.UniqueEndpoints).
			Dur("window", p.profile.Window).
			Msg("burst fan-out detected")
		return true, nil
	}
	return false, nil
}

// Stats returns the current burst statistics for a composite key.
func (p *Profiler) Stats(ctx context.Context, compositeKey string) (Stats, error) {
	return p.statsFor(ctx, burstKey(compositeKey))
}

func (p *Profiler) statsFor(ctx context.Context, key string) (Stats, error) {
	entries, err := p.store.ZRangeWithScores(ctx, key, 0, -1)
	if err != nil {
		return Stats{}, fmt.Errorf("burst: read entries: %w", err)
	}
	unique := map[string]struct{}{}
	for _, e := range entries {
		unique[e.Member] = struct{}{}
	}
	return Stats{
		TotalRequests:   len(entries),
		UniqueEndpoints: len(unique),
		Suspicious:      len(unique) >= p.profile.Threshold,
	}, nil
}

func burstKey(compositeKey string) string {
	return "burst:" + compositeKey
}
