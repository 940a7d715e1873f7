package driven

import (
	"context"
	"time"
)

// JobQueue hands ingestion job IDs to workers.
// Implementations can use Redis streams or an in-process channel.
type JobQueue interface {
	// Enqueue adds a job ID to the queue
	Enqueue(ctx context.Context, jobID string) error

	// Dequeue waits up to timeout for the next job ID.
	// Returns "", nil if the timeout is reached with nothing queued.
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)

	// Ack acknowledges that a job has been handled (successfully or not).
	// Failed ingestions are terminal, so there is no redelivery.
	Ack(ctx context.Context, jobID string) error

	// Stats returns queue statistics
	Stats(ctx context.Context) (*QueueStats, error)

	// Ping checks if the queue backend is healthy
	Ping(ctx context.Context) error

	// Close cleans up resources
	Close() error
}

// QueueStats contains queue statistics
type QueueStats struct {
	// PendingCount is the number of jobs waiting to be picked up
	PendingCount int64 `json:"pending_count"`

	// InFlightCount is the number of delivered but unacknowledged jobs
	InFlightCount int64 `json:"in_flight_count"`
}
