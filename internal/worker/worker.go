package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// JobProcessor runs one queued ingestion job to a terminal state.
type JobProcessor interface {
	ProcessJob(ctx context.Context, jobID string) error
}

// Worker processes ingestion jobs from the job queue.
type Worker struct {
	queue     driven.JobQueue
	processor JobProcessor
	logger    *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout time.Duration
	errorBackoff   time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Queue          driven.JobQueue
	Processor      JobProcessor
	Logger         *slog.Logger
	Concurrency    int           // Number of concurrent job processors
	DequeueTimeout time.Duration // How long to wait for a job before checking again
	ErrorBackoff   time.Duration // Pause after a queue error
}

// NewWorker creates a new job worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5 * time.Second
	}

	backoff := cfg.ErrorBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &Worker{
		queue:          cfg.Queue,
		processor:      cfg.Processor,
		logger:         logger.With("component", "worker"),
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
		errorBackoff:   backoff,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker. Jobs in progress finish first.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh
	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	w.mu.RLock()
	doneCh := w.doneCh
	w.mu.RUnlock()
	if doneCh != nil {
		<-doneCh
	}
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		jobID, err := w.queue.Dequeue(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue job", "error", err)
			w.backoff(ctx)
			continue
		}

		if jobID == "" {
			continue
		}

		w.processJob(ctx, jobID, logger)
	}
}

func (w *Worker) backoff(ctx context.Context) {
	select {
	case <-time.After(w.errorBackoff):
	case <-w.stopCh:
	case <-ctx.Done():
	}
}

// processJob runs a single job. The job is acked either way: a failed
// ingestion is recorded on the job and never retried.
func (w *Worker) processJob(ctx context.Context, jobID string, logger *slog.Logger) {
	logger = logger.With("job_id", jobID)
	logger.Info("processing job")

	startTime := time.Now()
	err := w.processor.ProcessJob(ctx, jobID)
	duration := time.Since(startTime)

	if err != nil {
		logger.Error("job failed",
			"duration", duration,
			"error", err,
		)
	} else {
		logger.Info("job completed", "duration", duration)
	}

	if ackErr := w.queue.Ack(context.WithoutCancel(ctx), jobID); ackErr != nil {
		logger.Error("failed to ack job", "ack_error", ackErr)
	}
}

// Health returns health status of the worker.
type Health struct {
	Running     bool               `json:"running"`
	QueueHealth bool               `json:"queue_health"`
	Queue       *driven.QueueStats `json:"queue,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.queue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
		return health
	}
	health.QueueHealth = true

	if stats, err := w.queue.Stats(ctx); err == nil {
		health.Queue = stats
	}

	return health
}
