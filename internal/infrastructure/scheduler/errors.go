package scheduler

import "errors"

var (
	// ErrQueueFull is returned when the number of unfinished jobs reached the queue size
	ErrQueueFull = errors.New("job queue is full")

	// ErrQueueStopped is returned when enqueueing after Stop
	ErrQueueStopped = errors.New("job queue is stopped")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrUnknownJobType is returned when no handler is registered for a job type
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid job queue configuration")
)
