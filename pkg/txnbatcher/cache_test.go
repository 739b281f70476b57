package txnbatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name string
	Age  int
}

func newTestCache(t *testing.T, defaultTTL time.Duration) *Cache {
	t.Helper()

	config := DefaultConfig()
	config.Batch.ChunkSize = 25
	config.Batch.DrainRate = 0 // no throttling in tests

	queue, err := NewQueue(config)
	require.NoError(t, err)
	t.Cleanup(func() { queue.Close() })

	_, err = queue.Start(context.Background())
	require.NoError(t, err)

	return NewCache(queue, defaultTTL)
}

func TestCacheSetGetRoundTrip(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	want := profile{Name: "ada", Age: 36}
	require.NoError(t, cache.Set(ctx, "user:1", "user", want, 0))

	var got profile
	found, err := cache.Get(ctx, "user:1", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestCacheGetMissingKey(t *testing.T) {
	cache := newTestCache(t, 0)

	var got profile
	found, err := cache.Get(context.Background(), "nope", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheOverwrite(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "user:1", "user", profile{Name: "ada"}, 0))
	require.NoError(t, cache.Set(ctx, "user:1", "user", profile{Name: "grace"}, 0))

	var got profile
	found, err := cache.Get(ctx, "user:1", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "grace", got.Name)
}

func TestCacheTTLExpiryAndVacuum(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", "session", "x", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	// Expired entries read as missing but still occupy a row until Vacuum.
	var got string
	found, err := cache.Get(ctx, "short", &got)
	require.NoError(t, err)
	assert.False(t, found)

	keys, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"short"}, keys)

	require.NoError(t, cache.Vacuum(ctx))

	keys, err = cache.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCacheDefaultTTLApplies(t *testing.T) {
	cache := newTestCache(t, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "session", "x", 0))
	time.Sleep(30 * time.Millisecond)

	var got string
	found, err := cache.Get(ctx, "a", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheGetByTypeFiltersTagAndExpiry(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "u1", "user", profile{Name: "ada"}, 0))
	require.NoError(t, cache.Set(ctx, "u2", "user", profile{Name: "grace"}, 0))
	require.NoError(t, cache.Set(ctx, "s1", "session", "x", 0))
	require.NoError(t, cache.Set(ctx, "u3", "user", profile{Name: "gone"}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	elements, err := cache.GetByType(ctx, "user")
	require.NoError(t, err)
	require.Len(t, elements, 2)
	for _, el := range elements {
		assert.Equal(t, "user", el.Type)
	}
}

func TestCacheDelete(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "user", 1, 0))
	require.NoError(t, cache.Set(ctx, "b", "user", 2, 0))
	require.NoError(t, cache.Delete(ctx, "a"))

	keys, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestCacheDeleteTypeAndClear(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "u1", "user", 1, 0))
	require.NoError(t, cache.Set(ctx, "s1", "session", 2, 0))

	require.NoError(t, cache.DeleteType(ctx, "user"))
	keys, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, keys)

	require.NoError(t, cache.Clear(ctx))
	keys, err = cache.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
