package servicecache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iruldev/modhost/internal/runtimeutil"
)

func setupCache(t *testing.T, maxEntries int) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewFromClient(rdb, maxEntries)
}

func TestCache_SetGet(t *testing.T) {
	c := setupCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "svc:echo", []byte("v1"), time.Minute))

	val, err := c.Get(ctx, "svc:echo")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(val))
}

func TestCache_GetMiss(t *testing.T) {
	c := setupCache(t, 10)
	_, err := c.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, runtimeutil.ErrCacheMiss))
}

func TestCache_Delete(t *testing.T) {
	c := setupCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "svc:echo", []byte("v1"), time.Minute))
	require.NoError(t, c.Delete(ctx, "svc:echo"))

	_, err := c.Get(ctx, "svc:echo")
	assert.True(t, errors.Is(err, runtimeutil.ErrCacheMiss))
}

func TestCache_Exists(t *testing.T) {
	c := setupCache(t, 10)
	ctx := context.Background()

	ok, err := c.Exists(ctx, "svc:echo")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "svc:echo", []byte("v1"), time.Minute))
	ok, err = c.Exists(ctx, "svc:echo")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_EvictsOldestBeyondMaxEntries(t *testing.T) {
	c := setupCache(t, 2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Minute))

	_, err := c.Get(ctx, "a")
	assert.True(t, errors.Is(err, runtimeutil.ErrCacheMiss), "oldest key should have been evicted")

	val, err := c.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "3", string(val))
}

func TestCache_SetExistingKeyDoesNotDuplicateInOrder(t *testing.T) {
	c := setupCache(t, 1)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "a", []byte("2"), time.Minute))

	val, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", string(val))
}
