package kvstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// faultyStore fails every operation, optionally reporting itself disconnected
type faultyStore struct {
	connected bool
	setCalls  int
}

func (f *faultyStore) IsConnected(ctx context.Context) bool { return f.connected }

func (f *faultyStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("read failed")
}

func (f *faultyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.setCalls++
	return errors.New("write failed")
}

func (f *faultyStore) SAdd(ctx context.Context, key, member string) error {
	return errors.New("write failed")
}

func (f *faultyStore) SMembers(ctx context.Context, key string) ([]string, error) {
	return nil, errors.New("read failed")
}

func (f *faultyStore) Close() error { return nil }

func TestBestEffortPassthrough(t *testing.T) {
	be := NewBestEffort(NewMemoryStore(), nil)
	ctx := context.Background()

	assert.True(t, be.Available(ctx))

	be.Set(ctx, "k", "v", 0)
	val, ok := be.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", val)

	be.SAdd(ctx, "s", "a")
	be.SAdd(ctx, "s", "b")
	assert.ElementsMatch(t, []string{"a", "b"}, be.SMembers(ctx, "s"))

	require.NoError(t, be.Close())
}

func TestBestEffortSwallowsFailures(t *testing.T) {
	be := NewBestEffort(&faultyStore{connected: true}, nil)
	ctx := context.Background()

	// None of these panic or propagate errors.
	be.Set(ctx, "k", "v", 0)
	be.SAdd(ctx, "s", "a")

	val, ok := be.Get(ctx, "k")
	assert.False(t, ok)
	assert.Empty(t, val)

	assert.Empty(t, be.SMembers(ctx, "s"))
}

func TestBestEffortSkipsDisconnectedStore(t *testing.T) {
	backing := &faultyStore{connected: false}
	be := NewBestEffort(backing, nil)
	ctx := context.Background()

	assert.False(t, be.Available(ctx))

	be.Set(ctx, "k", "v", 0)
	assert.Zero(t, backing.setCalls, "writes skipped while disconnected")

	_, ok := be.Get(ctx, "k")
	assert.False(t, ok)
	assert.Empty(t, be.SMembers(ctx, "s"))
}
