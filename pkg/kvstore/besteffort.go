package kvstore

import (
	"context"
	"time"

	"github.com/disco/terminald/internal/logger"
)

// BestEffort wraps a Store with a write-through-best-effort consistency
// contract: every failure is logged and swallowed, never propagated, so
// callers can treat their in-memory state as authoritative. Reads degrade to
// misses and writes to no-ops while the backing store is unreachable.
type BestEffort struct {
	store  Store
	logger *logger.Logger
}

// NewBestEffort wraps store with the degrade-to-memory-only policy
func NewBestEffort(store Store, log *logger.Logger) *BestEffort {
	if log == nil {
		log = logger.Global()
	}
	return &BestEffort{
		store:  store,
		logger: log.With("component", "kvstore"),
	}
}

// Available reports whether the backing store is currently reachable
func (b *BestEffort) Available(ctx context.Context) bool {
	return b.store.IsConnected(ctx)
}

// Get returns the value stored at key, or a miss if the store is
// unreachable or the read fails.
func (b *BestEffort) Get(ctx context.Context, key string) (string, bool) {
	if !b.store.IsConnected(ctx) {
		return "", false
	}

	val, ok, err := b.store.Get(ctx, key)
	if err != nil {
		b.logger.Warn("Store read failed, treating as miss", "key", key, "error", err)
		return "", false
	}
	return val, ok
}

// Set stores value under key, dropping the write on failure
func (b *BestEffort) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if !b.store.IsConnected(ctx) {
		return
	}

	if err := b.store.Set(ctx, key, value, ttl); err != nil {
		b.logger.Warn("Store write failed, continuing in-memory only", "key", key, "error", err)
	}
}

// SAdd adds member to the set stored at key, dropping the write on failure
func (b *BestEffort) SAdd(ctx context.Context, key, member string) {
	if !b.store.IsConnected(ctx) {
		return
	}

	if err := b.store.SAdd(ctx, key, member); err != nil {
		b.logger.Warn("Store set-add failed, continuing in-memory only", "key", key, "error", err)
	}
}

// SMembers returns the members of the set stored at key, or an empty slice
// if the store is unreachable or the read fails.
func (b *BestEffort) SMembers(ctx context.Context, key string) []string {
	if !b.store.IsConnected(ctx) {
		return []string{}
	}

	members, err := b.store.SMembers(ctx, key)
	if err != nil {
		b.logger.Warn("Store set read failed, treating as empty", "key", key, "error", err)
		return []string{}
	}
	return members
}

// Close closes the backing store
func (b *BestEffort) Close() error {
	return b.store.Close()
}
