// Package scheduler provides an in-process job queue and periodic triggers.
//
// The queue keeps jobs in memory and loses them on restart. It is a
// development stand-in; producers depend on Enqueuer so a durable backend
// can replace it.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a queued job
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// IsFinished reports whether the job reached a terminal status
func (s JobStatus) IsFinished() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Job is a unit of background work
type Job struct {
	ID          uuid.UUID
	Type        string
	Payload     json.RawMessage
	Status      JobStatus
	Attempts    int
	MaxAttempts int
	RunAt       time.Time
	LastError   string
	CreatedAt   time.Time
	FinishedAt  *time.Time
}

// Handler executes a job payload
type Handler func(ctx context.Context, payload json.RawMessage) error

// Enqueuer accepts background jobs
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any) (uuid.UUID, error)
}

// QueueConfig holds job queue configuration
type QueueConfig struct {
	PollInterval   time.Duration
	MaxConcurrency int
	MaxAttempts    int
	RetryDelay     time.Duration
	JobTimeout     time.Duration
	QueueSize      int
	Retention      time.Duration
}

func (c QueueConfig) validate() error {
	if c.PollInterval <= 0 || c.MaxConcurrency < 1 || c.MaxAttempts < 1 || c.QueueSize < 1 {
		return ErrInvalidConfig
	}
	return nil
}

// FinishObserver is called once per attempt with its outcome
type FinishObserver func(jobType string, status JobStatus, duration time.Duration)

// Queue polls an in-memory job table and runs due jobs with bounded concurrency.
// Failed attempts are retried after RetryDelay * attempts.
type Queue struct {
	config   QueueConfig
	logger   *zap.Logger
	now      func() time.Time
	observer FinishObserver

	mu       sync.Mutex
	handlers map[string]Handler
	jobs     map[uuid.UUID]*Job
	running  int
	started  bool
	stopped  bool

	pollCancel context.CancelFunc
	jobCtx     context.Context
	jobCancel  context.CancelFunc
	pollWG     sync.WaitGroup
	jobWG      sync.WaitGroup
}

// QueueOption configures a Queue
type QueueOption func(*Queue)

// WithFinishObserver registers a callback for attempt outcomes
func WithFinishObserver(observer FinishObserver) QueueOption {
	return func(q *Queue) {
		q.observer = observer
	}
}

// NewQueue creates a job queue
func NewQueue(config QueueConfig, logger *zap.Logger, opts ...QueueOption) (*Queue, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		config:   config,
		logger:   logger,
		now:      time.Now,
		handlers: make(map[string]Handler),
		jobs:     make(map[uuid.UUID]*Job),
	}
	q.jobCtx, q.jobCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Register binds a handler to a job type
func (q *Queue) Register(jobType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Enqueue adds a job that becomes due immediately
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload any) (uuid.UUID, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal job payload: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return uuid.Nil, ErrQueueStopped
	}
	if _, ok := q.handlers[jobType]; !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}
	if q.unfinishedLocked() >= q.config.QueueSize {
		return uuid.Nil, ErrQueueFull
	}

	now := q.now()
	job := &Job{
		ID:          uuid.New(),
		Type:        jobType,
		Payload:     raw,
		Status:      JobStatusPending,
		MaxAttempts: q.config.MaxAttempts,
		RunAt:       now,
		CreatedAt:   now,
	}
	q.jobs[job.ID] = job

	q.logger.Debug("Job enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", jobType),
	)
	return job.ID, nil
}

// Get returns a snapshot of a job
func (q *Queue) Get(jobID uuid.UUID) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// Running returns the number of jobs currently executing
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Start begins polling for due jobs
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return nil
	}
	if q.stopped {
		q.mu.Unlock()
		return ErrQueueStopped
	}
	q.started = true
	pollCtx, pollCancel := context.WithCancel(ctx)
	q.pollCancel = pollCancel
	// job contexts outlive the poll loop so Stop can drain them
	q.jobCancel()
	q.jobCtx, q.jobCancel = context.WithCancel(context.WithoutCancel(ctx))
	q.mu.Unlock()

	q.pollWG.Add(1)
	go q.pollLoop(pollCtx)

	q.logger.Info("Job queue started",
		zap.Int("max_concurrency", q.config.MaxConcurrency),
		zap.Duration("poll_interval", q.config.PollInterval),
	)
	return nil
}

// Stop stops polling and waits for running jobs until ctx expires
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	started := q.started
	q.mu.Unlock()

	if !started {
		return nil
	}

	q.pollCancel()
	q.pollWG.Wait()

	done := make(chan struct{})
	go func() {
		q.jobWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.jobCancel()
		q.logger.Info("Job queue stopped gracefully")
		return nil
	case <-ctx.Done():
		q.jobCancel()
		q.logger.Warn("Job queue stop timed out", zap.Int("running", q.Running()))
		return ctx.Err()
	}
}

func (q *Queue) pollLoop(ctx context.Context) {
	defer q.pollWG.Done()

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.dispatch()
			q.prune()
		}
	}
}

// dispatch starts due jobs in run_at order while below the concurrency cap
func (q *Queue) dispatch() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running >= q.config.MaxConcurrency {
		return
	}

	now := q.now()
	due := make([]*Job, 0)
	for _, job := range q.jobs {
		if job.Status == JobStatusPending && !job.RunAt.After(now) {
			due = append(due, job)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].RunAt.Equal(due[j].RunAt) {
			return due[i].CreatedAt.Before(due[j].CreatedAt)
		}
		return due[i].RunAt.Before(due[j].RunAt)
	})

	for _, job := range due {
		if q.running >= q.config.MaxConcurrency {
			return
		}
		handler := q.handlers[job.Type]
		job.Status = JobStatusRunning
		job.Attempts++
		q.running++
		q.jobWG.Add(1)
		go q.execute(job.ID, job.Type, job.Payload, job.Attempts, handler)
	}
}

func (q *Queue) execute(jobID uuid.UUID, jobType string, payload json.RawMessage, attempt int, handler Handler) {
	defer q.jobWG.Done()

	log := q.logger.With(
		zap.String("job_id", jobID.String()),
		zap.String("job_type", jobType),
		zap.Int("attempt", attempt),
	)
	log.Info("Processing job")

	ctx := q.jobCtx
	if q.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.config.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := runHandler(ctx, handler, payload)
	q.finish(jobID, err, log, time.Since(start))
}

func runHandler(ctx context.Context, handler Handler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return handler(ctx, payload)
}

func (q *Queue) finish(jobID uuid.UUID, err error, log *zap.Logger, elapsed time.Duration) {
	q.mu.Lock()
	q.running--
	job, ok := q.jobs[jobID]
	if !ok {
		q.mu.Unlock()
		return
	}

	now := q.now()
	switch {
	case err == nil:
		job.Status = JobStatusSucceeded
		job.LastError = ""
		job.FinishedAt = &now
		log.Info("Job completed successfully", zap.Duration("duration", elapsed))
	case job.Attempts < job.MaxAttempts:
		job.Status = JobStatusPending
		job.LastError = err.Error()
		job.RunAt = now.Add(q.config.RetryDelay * time.Duration(job.Attempts))
		log.Warn("Job failed, scheduled for retry", zap.Error(err), zap.Time("run_at", job.RunAt))
	default:
		job.Status = JobStatusFailed
		job.LastError = err.Error()
		job.FinishedAt = &now
		log.Error("Job failed", zap.Error(err), zap.Int("max_attempts", job.MaxAttempts))
	}
	status, jobType := job.Status, job.Type
	q.mu.Unlock()

	if q.observer != nil {
		if status == JobStatusPending {
			status = JobStatusFailed
		}
		q.observer(jobType, status, elapsed)
	}
}

// prune drops finished jobs older than the retention window
func (q *Queue) prune() {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := q.now().Add(-q.config.Retention)
	for id, job := range q.jobs {
		if job.Status.IsFinished() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(q.jobs, id)
		}
	}
}

func (q *Queue) unfinishedLocked() int {
	n := 0
	for _, job := range q.jobs {
		if !job.Status.IsFinished() {
			n++
		}
	}
	return n
}
