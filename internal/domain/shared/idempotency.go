package shared

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// IdempotencyStore claims processing rights for an inbound event.
//
// Acquire creates a placeholder atomically and returns false when the key
// already exists. A placeholder that was never committed and is older than
// lockTTL is considered abandoned and may be reclaimed.
type IdempotencyStore interface {
	Acquire(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	Commit(ctx context.Context, key string, retention time.Duration) error
	Release(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// LockTTL bounds how long an uncommitted placeholder blocks retries
	LockTTL time.Duration
	// Retention is how long a committed key is remembered
	Retention time.Duration
	Enabled   bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:   5 * time.Minute,
		Retention: 7 * 24 * time.Hour,
		Enabled:   true,
	}
}

// IdempotencyKey derives the deterministic key for an event from its source,
// entity kind and provider identifier.
func IdempotencyKey(source, entity, id string) string {
	sum := sha256.Sum256([]byte(source + ":" + entity + ":" + id))
	return hex.EncodeToString(sum[:])
}
