package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when submitting to a stopped scheduler.
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full.
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrInvalidReportKind is returned for unknown report kinds.
	ErrInvalidReportKind = errors.New("invalid report kind")
)
