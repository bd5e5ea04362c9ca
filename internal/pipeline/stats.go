package pipeline

import (
	"context"

	"github.com/roomline/chatgate/internal/kv"
	"github.com/roomline/chatgate/internal/stats"
	"github.com/roomline/chatgate/internal/store"
)

// Subscribe exposes the broadcast bus subscription for the WebSocket layer.
func (p *Pipeline) Subscribe(ctx context.Context) kv.Subscription {
	return p.deps.Store.Subscribe(ctx)
}

func (p *Pipeline) TrackVisitor(ctx context.Context, ip, fingerprint, city string) error {
	return p.deps.Stats.TrackVisitor(ctx, ip, fingerprint, city)
}

func (p *Pipeline) DailyStats(ctx context.Context) (stats.DailyStats, error) {
	return p.deps.Stats.Daily(ctx)
}

func (p *Pipeline) CityStats(ctx context.Context) ([]stats.CityStats, error) {
	return p.deps.Stats.Cities(ctx)
}

func (p *Pipeline) Messages(ctx context.Context, location string) ([]store.ChatMessage, error) {
	return p.deps.Store.Messages(ctx, location)
}
