// Package idempotency runs inbound webhook handlers at most once per provider event.
package idempotency

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Metrics tracks guard outcomes
type Metrics struct {
	Processed atomic.Int64
	Duplicate atomic.Int64
	Failed    atomic.Int64
}

// Stats is a snapshot of Metrics
type Stats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// Stats returns a snapshot of the current metrics
func (m *Metrics) Stats() Stats {
	return Stats{
		Processed: m.Processed.Load(),
		Duplicate: m.Duplicate.Load(),
		Failed:    m.Failed.Load(),
	}
}

// Outcome is reported to the observer after each Run
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Observer receives one call per guarded event
type Observer func(ctx context.Context, source string, outcome Outcome)

// Guard claims an idempotency key before running a handler.
//
// Protocol: Acquire the key, run fn, Commit on success or Release on error
// so the provider's retry can run again.
type Guard struct {
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	logger   *zap.Logger
	metrics  *Metrics
	observer Observer
}

// Option is a functional option for Guard
type Option func(*Guard)

// WithConfig sets lock TTL and retention
func WithConfig(config shared.IdempotencyConfig) Option {
	return func(g *Guard) {
		g.config = config
	}
}

// WithObserver registers a callback for each outcome
func WithObserver(observer Observer) Option {
	return func(g *Guard) {
		g.observer = observer
	}
}

// NewGuard creates a guard over store
func NewGuard(store shared.IdempotencyStore, logger *zap.Logger, opts ...Option) *Guard {
	g := &Guard{
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
		metrics: &Metrics{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// Run executes fn unless the event identified by (source, entity, id) was
// already handled or is being handled. It returns duplicate=true without
// calling fn in that case.
func (g *Guard) Run(ctx context.Context, source, entity, id string, fn func(ctx context.Context) error) (bool, error) {
	if !g.config.Enabled {
		return false, fn(ctx)
	}

	key := shared.IdempotencyKey(source, entity, id)
	log := g.logger.With(
		zap.String("source", source),
		zap.String("entity", entity),
		zap.String("event_id", id),
	)

	acquired, err := g.store.Acquire(ctx, key, g.config.LockTTL)
	if err != nil {
		// without a claim the event could run twice; let the provider retry
		g.record(ctx, source, OutcomeFailed)
		return false, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if !acquired {
		g.record(ctx, source, OutcomeDuplicate)
		log.Info("duplicate webhook skipped")
		return true, nil
	}

	runCtx, span := telemetry.StartSpan(ctx, "webhook."+source,
		telemetry.WithAttribute(telemetry.SpanAttrEntity, entity),
		telemetry.WithAttribute(telemetry.SpanAttrEventID, id),
	)
	err = fn(runCtx)
	telemetry.Finish(span, err)
	if err != nil {
		g.record(ctx, source, OutcomeFailed)
		// release on a fresh context so a cancelled request still frees the key
		if relErr := g.store.Release(context.WithoutCancel(ctx), key); relErr != nil {
			log.Error("failed to release idempotency key", zap.Error(relErr))
		}
		log.Warn("webhook handler failed", zap.Error(err))
		return false, err
	}

	if err := g.store.Commit(context.WithoutCancel(ctx), key, g.config.Retention); err != nil {
		// the work is done; the placeholder turns reclaimable after the lock ttl
		log.Error("failed to commit idempotency key", zap.Error(err))
	}
	g.record(ctx, source, OutcomeProcessed)
	return false, nil
}

// Metrics returns the guard's metrics
func (g *Guard) Metrics() *Metrics {
	return g.metrics
}

func (g *Guard) record(ctx context.Context, source string, outcome Outcome) {
	switch outcome {
	case OutcomeProcessed:
		g.metrics.Processed.Add(1)
	case OutcomeDuplicate:
		g.metrics.Duplicate.Add(1)
	case OutcomeFailed:
		g.metrics.Failed.Add(1)
	}
	if g.observer != nil {
		g.observer(ctx, source, outcome)
	}
}
