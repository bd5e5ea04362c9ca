// WebSocket fan-out: one write-pump per connection reading off the shared
// pub/sub channel, filtering Throttled envelopes to same-IP subscribers.
// chatgate's wire protocol is write-only from server to browser; the
// connection's own context is cancelled on client disconnect. Grounded on
// spec section 5's paired-task model and
// _examples/original_source/server/src/scaling.rs's broadcast loop.
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/roomline/chatgate/internal/identity"
	"github.com/roomline/chatgate/internal/store"
	"github.com/roomline/chatgate/pkg/metrics"
)

var activeWSConnections int64

// handleWS implements GET /ws: upgrades the connection, subscribes to the
// broadcast bus, and streams every envelope the caller is entitled to see.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{s.allowedOrigin},
	})
	if err != nil {
		log.Warn().Err(err).Msg("httpserver: websocket accept failed")
		return
	}

	ip := identity.ClientIP(r)
	ctx := conn.CloseRead(r.Context())

	atomic.AddInt64(&activeWSConnections, 1)
	metrics.ActiveWSConnections.Inc()
	defer func() {
		atomic.AddInt64(&activeWSConnections, -1)
		metrics.ActiveWSConnections.Dec()
	}()

	sub := s.pipeline.Subscribe(ctx)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case payload, ok := <-sub.Messages():
			if !ok {
				return
			}
			var env store.Envelope
			if err := json.Unmarshal([]byte(payload), &env); err != nil {
				log.Warn().Err(err).Msg("httpserver: failed to unmarshal broadcast envelope")
				continue
			}
			if env.Visibility == store.VisibilityThrottled && env.SenderIP != ip {
				continue
			}
			if err := writeWS(ctx, conn, env.Message); err != nil {
				return
			}
		}
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, msg store.ChatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}
