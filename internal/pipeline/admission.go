package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/roomline/chatgate/pkg/metrics"

	"github.com/roomline/chatgate/internal/burst"
	"github.com/roomline/chatgate/internal/contentfilter"
	"github.com/roomline/chatgate/internal/identity"
	"github.com/roomline/chatgate/internal/moderation"
	"github.com/roomline/chatgate/internal/ratelimit"
	"github.com/roomline/chatgate/internal/reports"
	"github.com/roomline/chatgate/internal/reputation"
	"github.com/roomline/chatgate/internal/sanitize"
	"github.com/roomline/chatgate/internal/shadowban"
	"github.com/roomline/chatgate/internal/stats"
	"github.com/roomline/chatgate/internal/store"
)

// Deps collects every security component the admission pipeline wires
// together. Each is independently testable; Pipeline only sequences them.
type Deps struct {
	Blocks        *ratelimit.BlockStore
	Governor      *ratelimit.Governor
	BurstProfiler *burst.Profiler
	Limiter       *ratelimit.Limiter
	Shadowban     *shadowban.Manager
	Reputation    *reputation.Manager
	ContentFilter *contentfilter.Filter
	Moderation    *moderation.Service
	Sanitizer     *sanitize.HTML
	Store         *store.Store
	Stats         *stats.Tracker
	Reports       *reports.Pipeline
}

// Quotas are the three sliding-window quotas from spec section 4.2.
type Quotas struct {
	Post   ratelimit.Quota
	Reveal ratelimit.Quota
	Burst  ratelimit.Quota
}

// Policy holds the tunable thresholds that aren't a quota or a component's
// own config.
type Policy struct {
	MaxMessageLength   int
	FanoutBlockIP      time.Duration // IP block duration on burst-profiler trip (spec section 4.4: 30 min)
	BurstWindowBlockIP time.Duration // IP block duration on burst-protection quota exceeded (spec section 4.2: 30 min)
	ViolationTTL       time.Duration // spec section 4.5: 24h forgiveness window
	ViolationThreshold int64         // spec section 4.5: 3 violations
	AutoBanDuration    time.Duration // spec section 4.5: 24h
}

type Pipeline struct {
	deps   Deps
	quotas Quotas
	policy Policy
}

func New(deps Deps, quotas Quotas, policy Policy) *Pipeline {
	return &Pipeline{deps: deps, quotas: quotas, policy: policy}
}

// PostRequest is the decoded POST /messages body plus the identity and
// endpoint metadata the pipeline needs.
type PostRequest struct {
	Identity    identity.Context
	Endpoint    string
	BrowserID   string
	Message     string
	MessageType store.MessageType
	Phone       string
	Website     string // honeypot field; must arrive empty from a human client
	Location    string
}

// PostMessage runs the full admission chain from spec section 2 and, if
// accepted, persists and broadcasts the message. The returned ChatMessage is
// always populated on a non-error Outcome, including the synthesized
// fake-success response shadowbanned and banned-visibility callers receive.
func (p *Pipeline) PostMessage(ctx context.Context, req PostRequest) (store.ChatMessage, Outcome, error) {
	ip := req.Identity.IPAddress
	compositeKey := req.Identity.CompositeKey

	if blocked, err := p.deps.Blocks.IsBlocked(ctx, ip); err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("pipeline: ip block check failed, failing open")
	} else if blocked {
		return store.ChatMessage{}, clientError(429, "ip_blocked", "This IP address is temporarily blocked"), nil
	}

	if !p.deps.Governor.Allow(ip) {
		metrics.RateLimitRejections.WithLabelValues("governor").Inc()
		return store.ChatMessage{}, clientError(429, "too_many_requests", "Too many requests"), nil
	}

	suspicious, err := p.deps.BurstProfiler.CheckBurst(ctx, compositeKey, req.Endpoint)
	if err != nil {
		log.Warn().Err(err).Str("composite_key", compositeKey).Msg("pipeline: burst profiler failed, failing open")
	} else if suspicious {
		if err := p.deps.Shadowban.Shadowban(ctx, compositeKey, "burst fan-out detected", p.policy.AutoBanDuration); err != nil {
			log.Error().Err(err).Msg("pipeline: failed to shadowban burst offender")
		}
		if err := p.deps.Blocks.BlockIP(ctx, ip, p.policy.FanoutBlockIP); err != nil {
			log.Error().Err(err).Msg("pipeline: failed to block burst offender ip")
		}
		metrics.ShadowbansIssued.WithLabelValues("burst_fanout").Inc()
		metrics.RateLimitRejections.WithLabelValues("burst_profiler").Inc()
		return store.ChatMessage{}, clientError(429, "suspicious_activity", "Suspicious activity detected"), nil
	}

	burstResult, err := p.deps.Limiter.Check(ctx, compositeKey, ratelimit.KindBurst, p.quotas.Burst)
	if err != nil {
		log.Warn().Err(err).Msg("pipeline: burst window check failed, failing open")
	} else if !burstResult.Allowed {
		if err := p.deps.Blocks.BlockIP(ctx, ip, p.policy.BurstWindowBlockIP); err != nil {
			log.Error().Err(err).Msg("pipeline: failed to block ip on burst quota exhaustion")
		}
		metrics.RateLimitRejections.WithLabelValues("burst_window").Inc()
		return store.ChatMessage{}, rateLimited(timeUntilReset(burstResult)), nil
	}

	if r := p.deps.ContentFilter.CheckHoneypot(req.Website); !r.Allowed {
		if err := p.deps.Shadowban.Shadowban(ctx, compositeKey, "honeypot", 0); err != nil {
			log.Error().Err(err).Msg("pipeline: failed to shadowban honeypot trip")
		}
		metrics.ShadowbansIssued.WithLabelValues("honeypot").Inc()
		return store.ChatMessage{}, contentViolation(r.Reason, 403), nil
	}

	shadowbanned, err := p.isShadowbanned(ctx, compositeKey, req.BrowserID)
	if err != nil {
		log.Warn().Err(err).Msg("pipeline: shadowban check failed, failing open")
	}
	if shadowbanned {
		return p.fakeSuccess(req), Outcome{}, nil
	}

	if r := p.deps.ContentFilter.ValidateLength(req.Message, p.policy.MaxMessageLength); !r.Allowed {
		return store.ChatMessage{}, clientError(400, "validation_error", r.Reason), nil
	}

	if r := p.deps.ContentFilter.CheckMessage(req.Message); !r.Allowed {
		p.recordViolation(ctx, compositeKey, "content filter: "+string(r.Violation))
		return store.ChatMessage{}, contentViolation(r.Reason, 403), nil
	}

	if r := p.deps.Moderation.Moderate(ctx, req.Message); !r.Allowed {
		p.recordViolation(ctx, compositeKey, "moderation: "+string(r.Violation))
		return store.ChatMessage{}, contentViolation(r.Reason, 403), nil
	}

	if !p.deps.ContentFilter.ValidatePhone(req.Phone) {
		return store.ChatMessage{}, clientError(400, "validation_error", "Phone number must contain 10-15 digits"), nil
	}

	if p.deps.ContentFilter.IsSuspiciousPattern(req.Message) {
		p.recordViolation(ctx, compositeKey, "suspicious pattern")
	}

	if remaining, err := p.deps.Reputation.CheckCooldown(ctx, compositeKey); err != nil {
		log.Warn().Err(err).Msg("pipeline: cooldown check failed, failing open")
	} else if remaining > 0 {
		metrics.RateLimitRejections.WithLabelValues("reputation_cooldown").Inc()
		return store.ChatMessage{}, rateLimited(remaining), nil
	}

	postResult, err := p.deps.Limiter.Check(ctx, compositeKey, ratelimit.KindPost, p.quotas.Post)
	if err != nil {
		log.Warn().Err(err).Msg("pipeline: post quota check failed, failing open")
	} else if !postResult.Allowed {
		metrics.RateLimitRejections.WithLabelValues("post_quota").Inc()
		return store.ChatMessage{}, rateLimited(timeUntilReset(postResult)), nil
	}

	level, err := p.deps.Reputation.ApplyCooldown(ctx, compositeKey, ip)
	if err != nil {
		log.Warn().Err(err).Msg("pipeline: failed to apply cooldown, treating as Normal visibility")
		level = reputation.Level0
	}
	visibility := toStoreVisibility(level.VisibilityMode())

	msg := store.NewMessage(p.deps.Sanitizer, req.BrowserID, req.Message, req.MessageType, req.Phone, req.Location)

	if visibility == store.VisibilityBanned {
		return msg, Outcome{}, nil
	}

	if err := p.deps.Store.Persist(ctx, msg); err != nil {
		return store.ChatMessage{}, storeError("failed to store message"), fmt.Errorf("pipeline: persist: %w", err)
	}
	if err := p.deps.Store.Broadcast(ctx, msg, visibility, ip); err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("pipeline: broadcast failed")
	}
	if err := p.deps.Stats.IncrementMessageCount(ctx); err != nil {
		log.Warn().Err(err).Msg("pipeline: failed to increment message count stat")
	}
	metrics.MessagesPosted.Inc()

	return msg, Outcome{}, nil
}

// isShadowbanned consults both the composite-key ban and the synthetic
// "reported:<fingerprint>" ban spec section 4.10 requires.
func (p *Pipeline) isShadowbanned(ctx context.Context, compositeKey, browserID string) (bool, error) {
	direct, err := p.deps.Shadowban.IsShadowbanned(ctx, compositeKey)
	if err != nil {
		return false, err
	}
	if direct {
		return true, nil
	}
	return p.deps.Shadowban.IsShadowbanned(ctx, reports.ReportedKeyPrefix+browserID)
}

// fakeSuccess builds the message a shadowbanned or banned-visibility caller
// sees, identical in shape to a real acceptance, without ever touching
// storage or the bus.
func (p *Pipeline) fakeSuccess(req PostRequest) store.ChatMessage {
	return store.NewMessage(p.deps.Sanitizer, req.BrowserID, req.Message, req.MessageType, req.Phone, req.Location)
}

func (p *Pipeline) recordViolation(ctx context.Context, compositeKey, reason string) {
	violations, err := p.deps.Shadowban.IncrementViolations(ctx, compositeKey, p.policy.ViolationTTL)
	if err != nil {
		log.Warn().Err(err).Str("composite_key", compositeKey).Msg("pipeline: failed to record violation")
		return
	}
	banned, err := p.deps.Shadowban.AutoShadowbanOnViolations(ctx, compositeKey, p.policy.ViolationThreshold, p.policy.AutoBanDuration)
	if err != nil {
		log.Warn().Err(err).Str("composite_key", compositeKey).Msg("pipeline: auto-shadowban check failed")
		return
	}
	if banned {
		metrics.ShadowbansIssued.WithLabelValues("violation_threshold").Inc()
		log.Info().Str("composite_key", compositeKey).Int64("violations", violations).Str("trigger", reason).Msg("pipeline: auto-shadowban applied")
	}
}

func toStoreVisibility(v reputation.Visibility) store.Visibility {
	switch v {
	case reputation.Throttled:
		return store.VisibilityThrottled
	case reputation.Banned:
		return store.VisibilityBanned
	default:
		return store.VisibilityNormal
	}
}
