package kvstore

import (
	"context"
	"sync"
	"time"
)

// entry is a string value with an optional absolute expiry
type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-process Store with lazy TTL expiry. It backs
// deployments that run without Redis and every persistence-path test.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]entry
	sets   map[string]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]entry),
		sets:   make(map[string]map[string]struct{}),
	}
}

// IsConnected always reports true
func (m *MemoryStore) IsConnected(ctx context.Context) bool {
	return true
}

// Get returns the value stored at key, honoring expiry
func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.values[key]
	if !ok {
		return "", false, nil
	}

	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.values, key)
		return "", false, nil
	}

	return e.value, true, nil
}

// Set stores value under key with the given TTL
func (m *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.values[key] = e
	return nil
}

// SAdd adds member to the set stored at key
func (m *MemoryStore) SAdd(ctx context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	set[member] = struct{}{}
	return nil
}

// SMembers returns all members of the set stored at key
func (m *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.sets[key]
	if !ok {
		return []string{}, nil
	}

	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	return members, nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
