package httpserver

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth implements GET /health: 200 while serving and Redis answers
// a ping within budget, 503 while draining or when Redis is unreachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	redisConnected := true
	pingCtx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.pingRedis(pingCtx); err != nil {
		redisConnected = false
	}

	healthy := redisConnected && !IsDraining()
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]interface{}{
		"healthy":            healthy,
		"redis_connected":    redisConnected,
		"active_connections": atomic.LoadInt64(&activeWSConnections),
		"timestamp":          time.Now().Unix(),
	})
}
