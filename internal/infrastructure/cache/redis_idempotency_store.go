package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/domain/shared"
)

const (
	defaultIdempotencyPrefix = "webhook:idem:"

	valuePending = "PENDING"
	valueDone    = "DONE"
)

// commitScript flips a held placeholder to DONE with the retention TTL.
// It fails when the placeholder expired or was never taken.
var commitScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// releaseScript deletes the key only while it is still a placeholder
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisIdempotencyStore implements shared.IdempotencyStore using Redis.
// Suitable when several API instances receive webhooks.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store with an existing Redis client
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultIdempotencyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire sets the placeholder with SET NX PX lockTTL. Redis expires an
// abandoned placeholder on its own, which makes it reclaimable.
func (s *RedisIdempotencyStore) Acquire(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, valuePending, lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire idempotency key: %w", err)
	}
	return ok, nil
}

// Commit marks the key done and keeps it for retention
func (s *RedisIdempotencyStore) Commit(ctx context.Context, key string, retention time.Duration) error {
	n, err := commitScript.Run(ctx, s.client, []string{s.keyPrefix + key},
		valuePending, valueDone, retention.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to commit idempotency key: %w", err)
	}
	if n == 0 {
		return shared.NewDomainError("IDEMPOTENCY_NOT_HELD", "idempotency key is not held")
	}
	return nil
}

// Release drops an uncommitted placeholder
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	err := releaseScript.Run(ctx, s.client, []string{s.keyPrefix + key}, valuePending).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
