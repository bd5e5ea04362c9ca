package pipeline

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/roomline/chatgate/internal/ratelimit"
	"github.com/roomline/chatgate/internal/store"
)

// RevealContact enforces the contact_reveal quota (5 per hour, spec section
// 4.2) before returning the phone number stored against a message.
func (p *Pipeline) RevealContact(ctx context.Context, compositeKey, messageID string) (store.ChatMessage, Outcome, error) {
	result, err := p.deps.Limiter.Check(ctx, compositeKey, ratelimit.KindReveal, p.quotas.Reveal)
	if err != nil {
		log.Warn().Err(err).Msg("pipeline: reveal quota check failed, failing open")
	} else if !result.Allowed {
		return store.ChatMessage{}, rateLimited(timeUntilReset(result)), nil
	}

	msg, ok, err := p.deps.Store.MessageByID(ctx, messageID)
	if err != nil {
		return store.ChatMessage{}, storeError("failed to look up message"), err
	}
	if !ok {
		return store.ChatMessage{}, clientError(404, "not_found", "Message not found"), nil
	}
	return msg, Outcome{}, nil
}
