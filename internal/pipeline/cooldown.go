package pipeline

import (
	"context"

	"github.com/roomline/chatgate/internal/ratelimit"
)

// CooldownStatus is the response for GET /api/cooldown.
type CooldownStatus struct {
	CanPost          bool  `json:"can_post"`
	RemainingSeconds int64 `json:"remaining_seconds"`
}

// Cooldown reports whether compositeKey may post right now, using the
// non-consuming Status probe so checking does not itself use up the quota.
func (p *Pipeline) Cooldown(ctx context.Context, compositeKey string) (CooldownStatus, error) {
	result, err := p.deps.Limiter.Status(ctx, compositeKey, ratelimit.KindPost, p.quotas.Post)
	if err != nil {
		return CooldownStatus{CanPost: true}, err
	}
	if result.Allowed {
		return CooldownStatus{CanPost: true}, nil
	}
	remaining := timeUntilReset(result)
	secs := int64(remaining.Seconds())
	if secs < 0 {
		secs = 0
	}
	return CooldownStatus{CanPost: false, RemainingSeconds: secs}, nil
}
