package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/cadis/pkg/logger"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestCache_SaveWritesThrough(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	backing := NewMemoryStore()
	cache := NewCache(backing, client, WithTTL(time.Minute), WithCacheLogger(logger.Nop()))

	require.NoError(t, cache.SaveRun(ctx, sampleRun("run-1")))

	assert.Equal(t, 1, backing.Len())
	assert.True(t, mr.Exists("cadis:run:run-1"))
	assert.Equal(t, time.Minute, mr.TTL("cadis:run:run-1"))
}

func TestCache_ServesFromRedis(t *testing.T) {
	ctx := context.Background()
	_, client := setupTestRedis(t)

	warm := NewCache(NewMemoryStore(), client, WithCacheLogger(logger.Nop()))
	require.NoError(t, warm.SaveRun(ctx, sampleRun("run-1")))

	// A cache over an empty store can only answer from Redis.
	cold := NewCache(NewMemoryStore(), client, WithCacheLogger(logger.Nop()))
	got, err := cold.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.Report.RunID)
}

func TestCache_FillsOnMiss(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	backing := NewMemoryStore()
	require.NoError(t, backing.SaveRun(ctx, sampleRun("run-1")))

	cache := NewCache(backing, client, WithKeyPrefix("test:"), WithCacheLogger(logger.Nop()))
	assert.False(t, mr.Exists("test:run-1"))

	got, err := cache.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "growth-trajectory-analysis", got.Scenario.ID)
	assert.True(t, mr.Exists("test:run-1"))

	_, err = cache.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCache_RecoversFromCorruptEntry(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	backing := NewMemoryStore()
	require.NoError(t, backing.SaveRun(ctx, sampleRun("run-1")))
	require.NoError(t, mr.Set("cadis:run:run-1", "not json"))

	cache := NewCache(backing, client, WithCacheLogger(logger.Nop()))
	got, err := cache.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.Report.RunID)

	v, err := mr.Get("cadis:run:run-1")
	require.NoError(t, err)
	assert.NotEqual(t, "not json", v)
}

func TestCache_FallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	backing := NewMemoryStore()
	cache := NewCache(backing, client, WithCacheLogger(logger.Nop()))

	mr.Close()

	require.NoError(t, cache.SaveRun(ctx, sampleRun("run-1")))
	got, err := cache.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.Report.RunID)
}
