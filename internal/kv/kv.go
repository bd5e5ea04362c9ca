// Package kv is the abstract key/value + pub/sub interface every security
// component is built against, so unit tests can swap in a fake store
// without a Redis instance. The production implementation wraps
// github.com/redis/go-redis/v9, grounded on the teacher's own direct use of
// *redis.Client in internal/rl and internal/rl/mitigation.go.
package kv

import (
	"context"
	"time"
)

// ZEntry is one scored sorted-set member.
type ZEntry struct {
	Member string
	Score  float64
}

// Store is the subset of Redis primitives the admission pipeline needs:
// strings with TTL, counters, sets, and sorted sets.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining lifetime of key. A negative-one duration
	// means the key has no expiry, a negative-two means it does not exist,
	// matching Redis TTL semantics.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) error
	Keys(ctx context.Context, pattern string) ([]string, error)

	SAdd(ctx context.Context, key, member string) error
	SCard(ctx context.Context, key string) (int64, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZCount(ctx context.Context, key string, min, max float64) (int64, error)
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ZEntry, error)
}

// Bus is the pub/sub channel used to fan messages out to every server
// instance's WebSocket connections.
type Bus interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channel string) Subscription
}

// Subscription delivers published payloads until Close is called.
type Subscription interface {
	Messages() <-chan string
	Close() error
}
