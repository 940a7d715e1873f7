package driven

import (
	"context"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// JobStore persists ingestion job status. It is the single source of truth for status polling.
type JobStore interface {
	// Save creates or updates a job
	Save(ctx context.Context, job *domain.ProcessingJob) error

	// Get retrieves a job by ID. Returns domain.ErrNotFound if unknown.
	Get(ctx context.Context, id string) (*domain.ProcessingJob, error)

	// List returns jobs, newest first
	List(ctx context.Context, limit int) ([]*domain.ProcessingJob, error)
}
