package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Ensure JobQueue implements driven.JobQueue
var _ driven.JobQueue = (*JobQueue)(nil)

// ErrQueueClosed is returned after Close.
var ErrQueueClosed = errors.New("queue closed")

// JobQueue is a buffered channel of job IDs.
type JobQueue struct {
	ch       chan string
	mu       sync.Mutex
	inFlight map[string]struct{}
	closed   bool
	done     chan struct{}
}

// NewJobQueue creates a queue holding up to size pending jobs.
func NewJobQueue(size int) *JobQueue {
	if size <= 0 {
		size = 1024
	}
	return &JobQueue{
		ch:       make(chan string, size),
		inFlight: make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

func (q *JobQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- jobID:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *JobQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case id := <-q.ch:
		q.mu.Lock()
		q.inFlight[id] = struct{}{}
		q.mu.Unlock()
		return id, nil
	case <-timer.C:
		return "", nil
	case <-q.done:
		return "", ErrQueueClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *JobQueue) Ack(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, jobID)
	return nil
}

func (q *JobQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return &driven.QueueStats{
		PendingCount:  int64(len(q.ch)),
		InFlightCount: int64(len(q.inFlight)),
	}, nil
}

func (q *JobQueue) Ping(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	return nil
}

func (q *JobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}
