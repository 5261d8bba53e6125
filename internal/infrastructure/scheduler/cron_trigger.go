package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CronTriggerConfig holds configuration for the periodic trigger
type CronTriggerConfig struct {
	// Interval between two enqueues of every registered job type
	Interval time.Duration
	// JobTypes are enqueued with an empty payload on every tick
	JobTypes []string
}

// DefaultCronTriggerConfig returns default trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		Interval: time.Hour,
	}
}

// CronTrigger periodically enqueues maintenance jobs such as purging
// expired carts and pruning idempotency keys.
type CronTrigger struct {
	config   CronTriggerConfig
	enqueuer Enqueuer
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewCronTrigger creates a new periodic trigger
func NewCronTrigger(config CronTriggerConfig, enqueuer Enqueuer, logger *zap.Logger) *CronTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config:   config,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// Start starts the trigger loop
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	if c.config.Interval <= 0 {
		c.mu.Unlock()
		return ErrInvalidConfig
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Duration("interval", c.config.Interval),
		zap.Strings("job_types", c.config.JobTypes),
	)
	return nil
}

// Stop stops the trigger loop
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.trigger(ctx)
		}
	}
}

// trigger enqueues every configured job type once
func (c *CronTrigger) trigger(ctx context.Context) {
	for _, jobType := range c.config.JobTypes {
		if _, err := c.enqueuer.Enqueue(ctx, jobType, struct{}{}); err != nil {
			c.logger.Error("Failed to enqueue periodic job",
				zap.String("job_type", jobType),
				zap.Error(err),
			)
		}
	}
}
