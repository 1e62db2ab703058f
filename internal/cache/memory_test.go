package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	store.Set(ctx, "post:1", []byte("hello"), time.Minute)

	got, ok := store.Get(ctx, "post:1")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), got)

	_, ok = store.Get(ctx, "post:2")
	assert.False(t, ok)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	store.Set(ctx, "post:1", []byte("stale"), -time.Second)

	_, ok := store.Get(ctx, "post:1")
	assert.False(t, ok, "expired entry must read as a miss")
}

func TestMemoryStoreDeletePattern(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	store.Set(ctx, "posts:page:1:per_page:5", []byte("a"), time.Minute)
	store.Set(ctx, "posts:page:2:per_page:5", []byte("b"), time.Minute)
	store.Set(ctx, "post:1", []byte("c"), time.Minute)

	store.DeletePattern(ctx, "posts:*")

	_, ok := store.Get(ctx, "posts:page:1:per_page:5")
	assert.False(t, ok)
	_, ok = store.Get(ctx, "posts:page:2:per_page:5")
	assert.False(t, ok)
	_, ok = store.Get(ctx, "post:1")
	assert.True(t, ok, "non-matching key must survive")
}

func TestMemoryStoreEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	store.Set(ctx, "a", []byte("1"), time.Minute)
	store.Set(ctx, "b", []byte("2"), time.Minute)
	store.Set(ctx, "c", []byte("3"), time.Minute)

	_, ok := store.Get(ctx, "a")
	assert.False(t, ok, "oldest entry must be evicted at capacity")
	_, ok = store.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryStoreStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	store.Set(ctx, "a", []byte("1"), time.Minute)
	store.Get(ctx, "a")
	store.Get(ctx, "missing")

	stats := store.Stats(ctx)
	assert.Equal(t, "memory", stats.Backend)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.KeyspaceHits)
	assert.Equal(t, int64(1), stats.KeyspaceMisses)
	assert.InDelta(t, 50.0, stats.HitRate, 0.01)
}

func TestGetSetJSON(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)

	type payload struct {
		Title string `json:"title"`
		Count int    `json:"count"`
	}

	SetJSON(ctx, store, "post:1", payload{Title: "hi", Count: 3}, time.Minute)

	var out payload
	require.True(t, GetJSON(ctx, store, "post:1", &out))
	assert.Equal(t, payload{Title: "hi", Count: 3}, out)

	// Corrupt entries read as misses and are dropped.
	store.Set(ctx, "post:2", []byte("{not json"), time.Minute)
	assert.False(t, GetJSON(ctx, store, "post:2", &out))
	_, ok := store.Get(ctx, "post:2")
	assert.False(t, ok)
}
