package driving

import (
	"context"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// IngestRequest is one synchronous ingestion.
type IngestRequest struct {
	Text       string
	Collection string // empty means the configured default
	Source     string // stored in record metadata, e.g. the filename
	Mode       domain.IngestMode
}

// SubmitRequest queues an ingestion. Exactly one of Path or Text is set.
type SubmitRequest struct {
	Filename   string
	Path       string
	Text       string
	TempPath   string
	Collection string
	Mode       domain.IngestMode
}

// IngestionService runs normalize -> chunk -> embed -> persist.
type IngestionService interface {
	// Ingest runs the pipeline and returns the number of chunks written.
	// Empty input fails with domain.ErrEmptyDocument.
	Ingest(ctx context.Context, req IngestRequest) (*domain.IngestResult, error)

	// Submit records a job in the uploaded state and queues it
	Submit(ctx context.Context, req SubmitRequest) (*domain.ProcessingJob, error)

	// ProcessJob executes a queued job. Called by workers.
	ProcessJob(ctx context.Context, jobID string) error

	// Status returns the current state of a job
	Status(ctx context.Context, jobID string) (*domain.ProcessingJob, error)

	// ListJobs returns recent jobs, newest first
	ListJobs(ctx context.Context, limit int) ([]*domain.ProcessingJob, error)
}
