// Package reputation tracks per-IP risk from unique abuse reports and
// derives the cooldown/visibility a composite key is subject to. Grounded
// on _examples/original_source/server/src/security/ip_reputation.rs.
package reputation

import (
	"context"
	"fmt"
	"time"

	"github.com/roomline/chatgate/internal/kv"
)

// RiskLevel buckets an IP by how many distinct fingerprints have been
// reported against it.
type RiskLevel int

const (
	Level0 RiskLevel = iota // 0-1 unique reports
	Level1                  // 2 unique reports
	Level2                  // 3-5 unique reports
	Level3                  // 6+ unique reports
)

// Visibility determines how a shadow-throttled message is broadcast.
type Visibility int

const (
	Normal Visibility = iota
	Throttled
	Banned
)

func LevelFromReportCount(count int64) RiskLevel {
	switch {
	case count <= 1:
		return Level0
	case count == 2:
		return Level1
	case count <= 5:
		return Level2
	default:
		return Level3
	}
}

func (r RiskLevel) CooldownSeconds() time.Duration {
	switch r {
	case Level0:
		return 60 * time.Second
	case Level1:
		return 300 * time.Second
	case Level2:
		return 900 * time.Second
	default:
		return 7200 * time.Second
	}
}

func (r RiskLevel) VisibilityMode() Visibility {
	switch r {
	case Level2:
		return Throttled
	case Level3:
		return Banned
	default:
		return Normal
	}
}

type Manager struct {
	store      kv.Store
	reportTTL  time.Duration
}

func New(store kv.Store, reportTTL time.Duration) *Manager {
	return &Manager{store: store, reportTTL: reportTTL}
}

// AddReport records a report of fingerprint originating from ip and returns
// the new unique-report count for that IP.
func (m *Manager) AddReport(ctx context.Context, ip, fingerprint string) (int64, error) {
	key := reportsKey(ip)
	if err := m.store.SAdd(ctx, key, fingerprint); err != nil {
		return 0, fmt.Errorf("reputation: add report: %w", err)
	}
	if err := m.store.Expire(ctx, key, m.reportTTL); err != nil {
		return 0, fmt.Errorf("reputation: refresh report ttl: %w", err)
	}
	return m.store.SCard(ctx, key)
}

func (m *Manager) ReportCount(ctx context.Context, ip string) (int64, error) {
	return m.store.SCard(ctx, reportsKey(ip))
}

func (m *Manager) RiskLevel(ctx context.Context, ip string) (RiskLevel, error) {
	count, err := m.ReportCount(ctx, ip)
	if err != nil {
		return Level0, err
	}
	return LevelFromReportCount(count), nil
}

// CheckCooldown returns the remaining cooldown for compositeKey, or zero if
// it may post now.
func (m *Manager) CheckCooldown(ctx context.Context, compositeKey string) (time.Duration, error) {
	ttl, err := m.store.TTL(ctx, cooldownKey(compositeKey))
	if err != nil {
		return 0, fmt.Errorf("reputation: check cooldown: %w", err)
	}
	if ttl > 0 {
		return ttl, nil
	}
	return 0, nil
}

func (m *Manager) SetCooldown(ctx context.Context, compositeKey string, duration time.Duration) error {
	return m.store.SetEx(ctx, cooldownKey(compositeKey), "1", duration)
}

// ApplyCooldown starts a fresh cooldown on compositeKey sized to ip's
// current risk level, called once a post is accepted (spec section 4.6:
// "after a successful post is decided, set cooldown..."). It returns the
// level applied so the caller can derive the post's visibility mode.
func (m *Manager) ApplyCooldown(ctx context.Context, compositeKey, ip string) (RiskLevel, error) {
	level, err := m.RiskLevel(ctx, ip)
	if err != nil {
		return Level0, err
	}
	if err := m.SetCooldown(ctx, compositeKey, level.CooldownSeconds()); err != nil {
		return Level0, err
	}
	return level, nil
}

func reportsKey(ip string) string            { return "reports:ip:" + ip }
func cooldownKey(compositeKey string) string { return "cooldown:" + compositeKey }
