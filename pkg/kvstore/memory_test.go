package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", "v", 0))

	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", val)

	// Overwrite replaces the value.
	require.NoError(t, store.Set(ctx, "k", "v2", 0))
	val, ok, _ = store.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v2", val)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", "v", 10*time.Millisecond))
	require.NoError(t, store.Set(ctx, "forever", "v", 0))

	val, ok, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok, "value readable before expiry")
	assert.Equal(t, "v", val)

	time.Sleep(25 * time.Millisecond)

	_, ok, err = store.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok, "value gone after TTL")

	_, ok, _ = store.Get(ctx, "forever")
	assert.True(t, ok, "zero TTL never expires")
}

func TestMemoryStoreSets(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	members, err := store.SMembers(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, store.SAdd(ctx, "s", "a"))
	require.NoError(t, store.SAdd(ctx, "s", "b"))
	require.NoError(t, store.SAdd(ctx, "s", "a")) // duplicate

	members, err = store.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)
}

func TestMemoryStoreAlwaysConnected(t *testing.T) {
	store := NewMemoryStore()
	assert.True(t, store.IsConnected(context.Background()))
	assert.NoError(t, store.Close())
}
