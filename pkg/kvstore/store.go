// Package kvstore provides the key-value persistence adapter used by the
// terminal session manager: string keys with per-key TTLs plus set-valued
// keys for reverse indices. The manager only ever talks to the adapter
// through the best-effort wrapper, which turns every failure into a logged
// no-op so the in-process state stays authoritative.
package kvstore

import (
	"context"
	"time"
)

// Store is the persistence adapter contract. Implementations must be safe
// for concurrent use.
type Store interface {
	// IsConnected reports whether the backing store is reachable.
	IsConnected(ctx context.Context) bool

	// Get returns the raw serialized value for key. The second return is
	// false when the key does not exist.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key with the given TTL. A zero TTL stores the
	// key without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SAdd adds member to the set stored at key.
	SAdd(ctx context.Context, key, member string) error

	// SMembers returns all members of the set stored at key. A missing key
	// yields an empty slice.
	SMembers(ctx context.Context, key string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
