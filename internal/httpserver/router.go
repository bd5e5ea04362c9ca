// Package httpserver wires chatgate's chi router: every HTTP/WS endpoint
// from spec section 6, the security-context and access-log middleware
// chain, and the drain flag graceful shutdown toggles. Grounded on
// _examples/skywalker-88-stormgate/internal/httpserver/router.go.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/roomline/chatgate/internal/identity"
	Lm "github.com/roomline/chatgate/internal/middleware"
	"github.com/roomline/chatgate/internal/pipeline"
)

// Deps collects what the router needs beyond the admission pipeline
// itself: the Redis client for health checks and the identity key
// generator for the security-context middleware.
type Deps struct {
	Pipeline      *pipeline.Pipeline
	Redis         *redis.Client
	Keys          *identity.KeyGenerator
	AllowedOrigin string
	AccessLog     bool
	AccessLogN    int
}

type Server struct {
	pipeline      *pipeline.Pipeline
	redis         *redis.Client
	allowedOrigin string
}

func (s *Server) pingRedis(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// NewRouter builds the chi router. Matches the teacher's signature shape:
// returns the handler plus a cleanup func for any background resources.
func NewRouter(d Deps) (http.Handler, func()) {
	s := &Server{pipeline: d.Pipeline, redis: d.Redis, allowedOrigin: d.AllowedOrigin}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(Lm.AccessLog(d.AccessLog, d.AccessLogN))
	r.Use(CORS(d.AllowedOrigin))
	r.Use(Lm.WithSecurityContext(d.Keys))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleWS)

	r.Post("/messages", s.handlePostMessage)
	r.Get("/messages", s.handleGetMessages)

	r.Route("/api", func(api chi.Router) {
		api.Get("/contact/{id}", s.handleContact)
		api.Get("/cooldown", s.handleCooldown)
		api.Post("/report", s.handleReport)
		api.Post("/track-visitor", s.handleTrackVisitor)
		api.Get("/stats/daily", s.handleDailyStats)
		api.Get("/stats/cities", s.handleCityStats)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})

	return r, func() {}
}
