package httpserver

import "sync/atomic"

var draining atomic.Bool

// SetDraining marks the server as shutting down; /health starts returning
// 503 so a load balancer stops sending new traffic, matching the teacher's
// drain flag in internal/httpserver/router.go.
func SetDraining(v bool) {
	draining.Store(v)
}

func IsDraining() bool {
	return draining.Load()
}
