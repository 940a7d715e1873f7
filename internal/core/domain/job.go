package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of an ingestion job
type JobStatus string

const (
	JobStatusUploaded   JobStatus = "uploaded"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// IsTerminal reports whether no further transition is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// IngestMode selects how an ingestion treats existing records.
type IngestMode string

const (
	// IngestModeAppend upserts new records next to existing ones.
	IngestModeAppend IngestMode = "append"
	// IngestModeReplace deletes the collection contents before inserting.
	// Readers may see fewer results while a replace is running.
	IngestModeReplace IngestMode = "replace"
)

// Valid reports whether m is a known mode
func (m IngestMode) Valid() bool {
	return m == IngestModeAppend || m == IngestModeReplace
}

// ProcessingJob tracks one asynchronous ingestion.
type ProcessingJob struct {
	ID         string     `json:"job_id"`
	Status     JobStatus  `json:"status"`
	Filename   string     `json:"filename"`
	Collection string     `json:"collection"`
	Mode       IngestMode `json:"mode"`

	// Path is the uploaded file to extract from. Empty when Text is set.
	Path string `json:"path,omitempty"`
	// Text is raw text submitted without a file.
	Text string `json:"text,omitempty"`
	// TempPath is removed if the job fails.
	TempPath string `json:"temp_path,omitempty"`

	Message       string     `json:"message"`
	ChunksCreated *int       `json:"chunks_created,omitempty"`
	TextLength    *int       `json:"text_length,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// NewProcessingJob creates a job in the uploaded state
func NewProcessingJob(filename, collection string, mode IngestMode) *ProcessingJob {
	now := time.Now()
	return &ProcessingJob{
		ID:         uuid.NewString(),
		Status:     JobStatusUploaded,
		Filename:   filename,
		Collection: collection,
		Mode:       mode,
		Message:    "File uploaded, waiting for processing",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkProcessing moves the job into processing.
func (j *ProcessingJob) MarkProcessing() error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("job %s is %s: %w", j.ID, j.Status, ErrJobFinished)
	}
	now := time.Now()
	j.Status = JobStatusProcessing
	j.Message = "Processing document"
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// MarkCompleted records the ingestion result.
func (j *ProcessingJob) MarkCompleted(chunks, textLength int) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("job %s is %s: %w", j.ID, j.Status, ErrJobFinished)
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Message = fmt.Sprintf("Successfully processed %d chunks", chunks)
	j.ChunksCreated = &chunks
	j.TextLength = &textLength
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// MarkFailed records the failure message.
func (j *ProcessingJob) MarkFailed(reason string) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("job %s is %s: %w", j.ID, j.Status, ErrJobFinished)
	}
	now := time.Now()
	j.Status = JobStatusError
	j.Message = "Error: " + reason
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// Duration returns how long processing took, or zero if not finished.
func (j *ProcessingJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}
