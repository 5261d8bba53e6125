package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisIdempotencyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("acquire is exclusive", func(t *testing.T) {
		_, client := newTestRedis(t)
		store := NewRedisIdempotencyStore(client, "")

		ok, err := store.Acquire(ctx, "evt", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Acquire(ctx, "evt", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("placeholder expires after lock ttl", func(t *testing.T) {
		mr, client := newTestRedis(t)
		store := NewRedisIdempotencyStore(client, "test:")

		ok, err := store.Acquire(ctx, "evt", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, valuePending, mustGet(t, mr, "test:evt"))

		mr.FastForward(2 * time.Minute)
		ok, err = store.Acquire(ctx, "evt", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("commit keeps key for retention", func(t *testing.T) {
		mr, client := newTestRedis(t)
		store := NewRedisIdempotencyStore(client, "")

		_, err := store.Acquire(ctx, "evt", time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Commit(ctx, "evt", time.Hour))
		assert.Equal(t, valueDone, mustGet(t, mr, defaultIdempotencyPrefix+"evt"))

		// release must not drop a committed key
		require.NoError(t, store.Release(ctx, "evt"))
		mr.FastForward(10 * time.Minute)
		ok, err := store.Acquire(ctx, "evt", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		assert.Error(t, store.Commit(ctx, "other", time.Hour))
	})

	t.Run("release frees the key", func(t *testing.T) {
		mr, client := newTestRedis(t)
		store := NewRedisIdempotencyStore(client, "")

		_, err := store.Acquire(ctx, "evt", time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Release(ctx, "evt"))
		assert.False(t, mr.Exists(defaultIdempotencyPrefix+"evt"))

		require.NoError(t, store.Release(ctx, "missing"))
	})
}

func TestRedisRateLimiter(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	limiter := NewRedisRateLimiter(client, "", 2, time.Minute)

	for i, wantRemaining := range []int{1, 0} {
		ok, remaining, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i)
		assert.Equal(t, wantRemaining, remaining)
	}

	ok, remaining, err := limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, remaining)

	ok, _, err = limiter.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	mr.FastForward(time.Minute + time.Second)
	ok, _, err = limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "window reset")
	assert.Equal(t, 2, limiter.Limit())
}

func TestIdempotencyStoreFactory(t *testing.T) {
	_, client := newTestRedis(t)
	logger := zaptest.NewLogger(t)

	t.Run("redis backend", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: BackendRedis},
			WithRedisClient(client), WithLogger(logger))
		store, err := f.CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &RedisIdempotencyStore{}, store)
	})

	t.Run("redis backend without client fails", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: BackendRedis})
		_, err := f.CreateStore()
		assert.Error(t, err)
	})

	t.Run("fallback to memory", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: BackendAuditLog},
			WithInMemoryFallback(true), WithLogger(logger))
		store, err := f.CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		_ = store.Close()
	})

	t.Run("auditlog backend uses supplied store", func(t *testing.T) {
		mem := NewInMemoryIdempotencyStore()
		defer mem.Close()
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: BackendAuditLog}, WithAuditLogStore(mem))
		store, err := f.CreateStore()
		require.NoError(t, err)
		assert.Same(t, mem, store)
	})

	t.Run("unknown backend", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: "etcd"})
		_, err := f.CreateStore()
		assert.Error(t, err)
	})
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
