package driving

import (
	"context"
	"io"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// DocumentService handles uploaded files and text ingestion entry points
type DocumentService interface {
	// Upload stores a file, overwriting one with the same name
	Upload(ctx context.Context, filename string, r io.Reader) (*domain.UploadInfo, error)

	// Process extracts and appends a stored upload synchronously
	Process(ctx context.Context, filename string) (*domain.IngestResult, error)

	// ProcessAsync queues extraction and ingestion of a stored upload
	ProcessAsync(ctx context.Context, filename string) (*domain.ProcessingJob, error)

	// ProcessText appends raw text under a title
	ProcessText(ctx context.Context, text, title string) (*domain.IngestResult, error)

	// Feed replaces the knowledge base with the given text
	Feed(ctx context.Context, text string) (*domain.IngestResult, error)

	// List returns stored uploads
	List(ctx context.Context) ([]*domain.UploadInfo, error)
}
