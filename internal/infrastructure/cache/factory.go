package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Idempotency backends accepted in configuration
const (
	BackendAuditLog = "auditlog"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// IdempotencyStoreFactory creates idempotency stores based on configuration
type IdempotencyStoreFactory struct {
	cfg                   config.IdempotencyConfig
	redisClient           *redis.Client
	auditLogStore         shared.IdempotencyStore
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithRedisClient supplies the client used by the redis backend
func WithRedisClient(client *redis.Client) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.redisClient = client
	}
}

// WithAuditLogStore supplies the database-backed store used by the auditlog backend
func WithAuditLogStore(store shared.IdempotencyStore) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.auditLogStore = store
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store
// when the configured backend is unavailable. Default is false.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(cfg config.IdempotencyConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the store for the configured backend
func (f *IdempotencyStoreFactory) CreateStore() (shared.IdempotencyStore, error) {
	var (
		store shared.IdempotencyStore
		err   error
	)
	switch f.cfg.Backend {
	case BackendRedis:
		if f.redisClient == nil {
			err = fmt.Errorf("redis idempotency backend selected but no Redis client is available")
		} else {
			store = NewRedisIdempotencyStore(f.redisClient, f.cfg.KeyPrefix)
		}
	case BackendMemory:
		f.logger.Warn("using in-memory idempotency store; duplicates are only detected within this process")
		return NewInMemoryIdempotencyStore(), nil
	case BackendAuditLog, "":
		if f.auditLogStore == nil {
			err = fmt.Errorf("auditlog idempotency backend selected but no database store is available")
		} else {
			store = f.auditLogStore
		}
	default:
		err = fmt.Errorf("unknown idempotency backend %q", f.cfg.Backend)
	}

	if err == nil {
		f.logger.Info("idempotency store ready", zap.String("backend", f.cfg.Backend))
		return store, nil
	}
	if !f.allowInMemoryFallback {
		return nil, err
	}
	f.logger.Warn("idempotency backend unavailable, falling back to in-memory store. "+
		"Duplicate webhooks may be processed in multi-instance deployments.",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
