// Package stats implements the visitor-tracking and daily/city aggregate
// endpoints. These are named in spec.md section 6 but their backing
// semantics were dropped by the distillation; the key layout here follows
// spec section 3's "Stats & Tracking" prefixes (see SPEC_FULL.md's
// SUPPLEMENTED FEATURES).
package stats

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/roomline/chatgate/internal/kv"
)

// dayTTL matches spec.md's StatsSets/Counters TTL (604,800s / 7 days),
// distinct from the 48h message TTL internal/store uses.
const dayTTL = 7 * 24 * time.Hour

type Tracker struct {
	store kv.Store
	clock func() time.Time
}

func New(store kv.Store) *Tracker {
	return &Tracker{store: store, clock: time.Now}
}

func (t *Tracker) today() string {
	return t.clock().UTC().Format("2006-01-02")
}

// TrackVisitor records a unique visitor for the day, and, if city is
// provided, records a unique per-city visitor plus a view counter.
func (t *Tracker) TrackVisitor(ctx context.Context, ip, fingerprint, city string) error {
	date := t.today()
	if err := t.store.SAdd(ctx, uniqueIPsKey(date), ip); err != nil {
		return fmt.Errorf("stats: track unique ip: %w", err)
	}
	if err := t.store.Expire(ctx, uniqueIPsKey(date), dayTTL); err != nil {
		return fmt.Errorf("stats: expire unique ips: %w", err)
	}
	if city == "" {
		return nil
	}
	if err := t.store.SAdd(ctx, cityVisitorsKey(city, date), fingerprint); err != nil {
		return fmt.Errorf("stats: track city visitor: %w", err)
	}
	if err := t.store.Expire(ctx, cityVisitorsKey(city, date), dayTTL); err != nil {
		return fmt.Errorf("stats: expire city visitors: %w", err)
	}
	if _, err := t.store.Incr(ctx, cityViewsKey(city, date)); err != nil {
		return fmt.Errorf("stats: increment city views: %w", err)
	}
	if err := t.store.Expire(ctx, cityViewsKey(city, date), dayTTL); err != nil {
		return fmt.Errorf("stats: expire city views: %w", err)
	}
	return nil
}

// IncrementMessageCount bumps today's message counter; called once per
// accepted post.
func (t *Tracker) IncrementMessageCount(ctx context.Context) error {
	date := t.today()
	if _, err := t.store.Incr(ctx, messageCountKey(date)); err != nil {
		return fmt.Errorf("stats: increment message count: %w", err)
	}
	return t.store.Expire(ctx, messageCountKey(date), dayTTL)
}

// DailyStats reports today's unique-IP count and message count.
type DailyStats struct {
	Date           string `json:"date"`
	UniqueVisitors int64  `json:"unique_visitors"`
	MessageCount   int64  `json:"message_count"`
}

func (t *Tracker) Daily(ctx context.Context) (DailyStats, error) {
	date := t.today()
	visitors, err := t.store.SCard(ctx, uniqueIPsKey(date))
	if err != nil {
		return DailyStats{}, fmt.Errorf("stats: count unique visitors: %w", err)
	}
	countStr, ok, err := t.store.Get(ctx, messageCountKey(date))
	if err != nil {
		return DailyStats{}, fmt.Errorf("stats: get message count: %w", err)
	}
	var count int64
	if ok {
		count, _ = strconv.ParseInt(countStr, 10, 64)
	}
	return DailyStats{Date: date, UniqueVisitors: visitors, MessageCount: count}, nil
}

// CityStats is one city's view/visitor summary for today.
type CityStats struct {
	City           string  `json:"city"`
	Views          int64   `json:"views"`
	UniqueVisitors int64   `json:"unique_visitors"`
	DailyAverage   float64 `json:"daily_average"`
}

// Cities enumerates today's per-city view counters, sorted descending by
// views.
func (t *Tracker) Cities(ctx context.Context) ([]CityStats, error) {
	date := t.today()
	keys, err := t.store.Keys(ctx, "stats:city_views:*:"+date)
	if err != nil {
		return nil, fmt.Errorf("stats: list city keys: %w", err)
	}
	out := make([]CityStats, 0, len(keys))
	for _, key := range keys {
		city := extractCity(key, date)
		if city == "" {
			continue
		}
		viewsStr, ok, err := t.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("stats: get city views: %w", err)
		}
		var views int64
		if ok {
			views, _ = strconv.ParseInt(viewsStr, 10, 64)
		}
		visitors, err := t.store.SCard(ctx, cityVisitorsKey(city, date))
		if err != nil {
			return nil, fmt.Errorf("stats: count city visitors: %w", err)
		}
		avgDays := float64(visitors)
		if avgDays < 1 {
			avgDays = 1
		}
		out = append(out, CityStats{
			City:           city,
			Views:          views,
			UniqueVisitors: visitors,
			DailyAverage:   float64(views) / avgDays,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Views > out[j].Views })
	return out, nil
}

func uniqueIPsKey(date string) string          { return "stats:unique_ips:" + date }
func cityVisitorsKey(city, date string) string { return "stats:city_visitors:" + city + ":" + date }
func cityViewsKey(city, date string) string    { return "stats:city_views:" + city + ":" + date }
func messageCountKey(date string) string       { return "stats:message_count:" + date }

func extractCity(key, date string) string {
	const prefix = "stats:city_views:"
	suffix := ":" + date
	if len(key) <= len(prefix)+len(suffix) {
		return ""
	}
	if key[:len(prefix)] != prefix || key[len(key)-len(suffix):] != suffix {
		return ""
	}
	return key[len(prefix) : len(key)-len(suffix)]
}
