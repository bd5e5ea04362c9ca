// Package shadowban manages the hard-ban state machine and violation
// counters from spec section 4.5, grounded on
// _examples/original_source/server/src/security/shadowban.rs.
package shadowban

import (
	"context"
	"fmt"
	"time"

	"github.com/roomline/chatgate/internal/kv"
)

// Permanent is the ~10 year TTL used to emulate a permanent ban, matching
// the original's 315360000 second constant.
const Permanent = 315360000 * time.Second

type Manager struct {
	store kv.Store
}

func New(store kv.Store) *Manager {
	return &Manager{store: store}
}

func (m *Manager) IsShadowbanned(ctx context.Context, compositeKey string) (bool, error) {
	return m.store.Exists(ctx, shadowbanKey(compositeKey))
}

// Shadowban bans compositeKey for duration, or Permanent if duration <= 0.
func (m *Manager) Shadowban(ctx context.Context, compositeKey, reason string, duration time.Duration) error {
	if reason == "" {
		reason = "no_reason"
	}
	if duration <= 0 {
		duration = Permanent
	}
	return m.store.SetEx(ctx, shadowbanKey(compositeKey), reason, duration)
}

func (m *Manager) RemoveShadowban(ctx context.Context, compositeKey string) error {
	return m.store.Del(ctx, shadowbanKey(compositeKey))
}

func (m *Manager) Reason(ctx context.Context, compositeKey string) (string, bool, error) {
	return m.store.Get(ctx, shadowbanKey(compositeKey))
}

// TTL returns the remaining ban duration. A permanent ban reports what is
// left of its Permanent TTL. A negative-one duration means the key exists
// without an expiry, a negative-two means there is no active ban.
func (m *Manager) TTL(ctx context.Context, compositeKey string) (time.Duration, error) {
	return m.store.TTL(ctx, shadowbanKey(compositeKey))
}

// IncrementViolations bumps the violation counter and refreshes its TTL so
// only recent violations count toward auto-escalation.
func (m *Manager) IncrementViolations(ctx context.Context, compositeKey string, ttl time.Duration) (int64, error) {
	key := violationsKey(compositeKey)
	count, err := m.store.Incr(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("shadowban: incr violations: %w", err)
	}
	if err := m.store.Expire(ctx, key, ttl); err != nil {
		return 0, fmt.Errorf("shadowban: refresh violations ttl: %w", err)
	}
	return count, nil
}

func (m *Manager) Violations(ctx context.Context, compositeKey string) (int64, error) {
	v, ok, err := m.store.Get(ctx, violationsKey(compositeKey))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	var n int64
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("shadowban: malformed violation count %q", v)
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}

// AutoShadowbanOnViolations bans compositeKey once its violation count
// reaches threshold, returning whether a new ban was applied.
func (m *Manager) AutoShadowbanOnViolations(ctx context.Context, compositeKey string, threshold int64, duration time.Duration) (bool, error) {
	violations, err := m.Violations(ctx, compositeKey)
	if err != nil {
		return false, err
	}
	if violations < threshold {
		return false, nil
	}
	reason := fmt.Sprintf("Auto-banned: %d violations", violations)
	if err := m.Shadowban(ctx, compositeKey, reason, duration); err != nil {
		return false, err
	}
	return true, nil
}

func shadowbanKey(compositeKey string) string  { return "shadowban:" + compositeKey }
func violationsKey(compositeKey string) string { return "violations:" + compositeKey }
