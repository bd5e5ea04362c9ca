// Package middleware provides the chi middleware chain chatgate wraps every
// request in: access logging and security-context extraction, grounded on
// _examples/skywalker-88-stormgate/internal/middleware/logging.go.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/roomline/chatgate/internal/identity"
)

type ctxKey int

const securityContextKey ctxKey = iota

// WithSecurityContext extracts the caller's IP and browser fingerprint,
// derives the composite key, and attaches an identity.Context to the
// request for downstream handlers to read via FromContext.
func WithSecurityContext(keys *identity.KeyGenerator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := identity.ClientIP(r)
			fingerprint := identity.FingerprintOf(r)
			sc := identity.Context{
				IPAddress:    ip,
				Fingerprint:  fingerprint,
				CompositeKey: keys.Generate(ip, fingerprint),
			}
			ctx := context.WithValue(r.Context(), securityContextKey, sc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext retrieves the identity.Context WithSecurityContext attached.
func FromContext(ctx context.Context) (identity.Context, bool) {
	sc, ok := ctx.Value(securityContextKey).(identity.Context)
	return sc, ok
}

// AccessLog logs method, path, status, duration, and remote IP for every
// request, gated by the ACCESS_LOG env var and sampled via ACCESS_LOG_SAMPLE,
// matching the teacher's logging middleware in spirit.
func AccessLog(enabled bool, sampleEvery int) func(http.Handler) http.Handler {
	if sampleEvery < 1 {
		sampleEvery = 1
	}
	var counter int
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			counter++
			sample := counter%sampleEvery == 0
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			if sample {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", sw.status).
					Dur("duration", time.Since(start)).
					Str("remote", r.RemoteAddr).
					Str("req_id", r.Header.Get("X-Request-Id")).
					Msg("http request")
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
