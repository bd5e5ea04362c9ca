package ratelimit

import (
	"context"
	"time"

	"github.com/roomline/chatgate/internal/kv"
)

// BlockStore records temporary IP blocks, grounded on block_ip/is_ip_blocked
// in the original rate_limiter.rs.
type BlockStore struct {
	store kv.Store
}

func NewBlockStore(store kv.Store) *BlockStore {
	return &BlockStore{store: store}
}

func (b *BlockStore) BlockIP(ctx context.Context, ip string, duration time.Duration) error {
	return b.store.SetEx(ctx, blockKey(ip), "1", duration)
}

func (b *BlockStore) IsBlocked(ctx context.Context, ip string) (bool, error) {
	return b.store.Exists(ctx, blockKey(ip))
}

func (b *BlockStore) TTL(ctx context.Context, ip string) (time.Duration, error) {
	return b.store.TTL(ctx, blockKey(ip))
}

func blockKey(ip string) string {
	return "blocked:ip:" + ip
}
