package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Ensure Queue implements JobQueue
var _ driven.JobQueue = (*Queue)(nil)

const (
	// pollInterval is how often Dequeue rechecks an empty queue
	pollInterval = 250 * time.Millisecond

	// claimTimeout is how long a claimed job may stay unacknowledged
	// before another worker may take it.
	claimTimeout = 5 * time.Minute
)

// Queue implements JobQueue on PostgreSQL using SKIP LOCKED claims.
// It is the fallback queue when Redis is not configured but a database is.
type Queue struct {
	db *sql.DB
}

// NewQueue creates a new PostgreSQL-backed job queue.
// Assumes the ingest_queue table exists (postgres.DB.InitSchema).
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	if jobID == "" {
		return errors.New("job id is required")
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO ingest_queue (job_id) VALUES ($1) ON CONFLICT (job_id) DO NOTHING`, jobID)
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return nil
}

// Dequeue polls until a job is claimed or timeout elapses.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		id, err := q.claim(ctx)
		if err != nil || id != "" {
			return id, err
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return "", nil
		}
		if wait > pollInterval {
			wait = pollInterval
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (q *Queue) claim(ctx context.Context) (string, error) {
	query := `
		UPDATE ingest_queue SET claimed_at = NOW()
		WHERE job_id = (
			SELECT job_id FROM ingest_queue
			WHERE claimed_at IS NULL OR claimed_at < NOW() - $1::interval
			ORDER BY enqueued_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING job_id
	`
	var id string
	err := q.db.QueryRowContext(ctx, query, fmt.Sprintf("%d seconds", int(claimTimeout.Seconds()))).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("claim job: %w", err)
	}
	return id, nil
}

func (q *Queue) Ack(ctx context.Context, jobID string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM ingest_queue WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("ack job %s: %w", jobID, err)
	}
	return nil
}

func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}
	query := `
		SELECT
			COUNT(*) FILTER (WHERE claimed_at IS NULL),
			COUNT(*) FILTER (WHERE claimed_at IS NOT NULL)
		FROM ingest_queue
	`
	if err := q.db.QueryRowContext(ctx, query).Scan(&stats.PendingCount, &stats.InFlightCount); err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}

// Ping checks database connectivity
func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close is a no-op (db connection managed externally)
func (q *Queue) Close() error {
	return nil
}
