package kv

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisBus adapts *redis.Client pub/sub to the Bus interface, grounded on
// _examples/original_source/server/src/scaling.rs's RedisBroadcastService.
type RedisBus struct {
	rdb *redis.Client
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

func (b *RedisBus) Publish(ctx context.Context, channel, message string) error {
	return b.rdb.Publish(ctx, channel, message).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, channel string) Subscription {
	sub := b.rdb.Subscribe(ctx, channel)
	out := make(chan string, 64)
	go func() {
		defer close(out)
		ch := sub.Channel()
		for msg := range ch {
			out <- msg.Payload
		}
	}()
	return &redisSubscription{sub: sub, out: out}
}

type redisSubscription struct {
	sub *redis.PubSub
	out chan string
}

func (s *redisSubscription) Messages() <-chan string { return s.out }
func (s *redisSubscription) Close() error            { return s.sub.Close() }
