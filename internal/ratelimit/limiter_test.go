package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/roomline/chatgate/internal/kv"
	"github.com/roomline/chatgate/internal/ratelimit"
)

func newTestLimiter(t *testing.T) *ratelimit.Limiter {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return ratelimit.New(kv.NewRedisStore(rdb))
}

func TestLimiter_AllowsUpToMax(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()
	quota := ratelimit.Quota{Window: time.Minute, Max: 2}

	for i := 0; i < 2; i++ {
		res, err := l.Check(ctx, "key-a", ratelimit.KindPost, quota)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("check %d: expected allowed, got %+v", i, res)
		}
	}

	res, err := l.Check(ctx, "key-a", ratelimit.KindPost, quota)
	if err != nil {
		t.Fatalf("third check: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected third request in the window to be rejected")
	}
}

func TestLimiter_Status_DoesNotConsume(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()
	quota := ratelimit.Quota{Window: time.Minute, Max: 1}

	if res, err := l.Check(ctx, "key-b", ratelimit.KindPost, quota); err != nil || !res.Allowed {
		t.Fatalf("initial check should be allowed, got %+v err=%v", res, err)
	}

	for i := 0; i < 3; i++ {
		res, err := l.Status(ctx, "key-b", ratelimit.KindPost, quota)
		if err != nil {
			t.Fatalf("status %d: %v", i, err)
		}
		if res.Allowed {
			t.Fatalf("status %d: quota already exhausted, want Allowed=false", i)
		}
	}
}

func TestLimiter_IndependentKeys(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()
	quota := ratelimit.Quota{Window: time.Minute, Max: 1}

	if res, err := l.Check(ctx, "alice", ratelimit.KindPost, quota); err != nil || !res.Allowed {
		t.Fatalf("alice's first post should be allowed: %+v %v", res, err)
	}
	if res, err := l.Check(ctx, "bob", ratelimit.KindPost, quota); err != nil || !res.Allowed {
		t.Fatalf("bob's first post should be allowed independent of alice: %+v %v", res, err)
	}
}
