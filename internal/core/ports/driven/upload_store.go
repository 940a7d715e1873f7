package driven

import (
	"context"
	"io"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// UploadStore keeps raw uploaded files keyed by filename.
type UploadStore interface {
	// Save writes the content under filename, overwriting an existing file
	Save(ctx context.Context, filename string, r io.Reader) (*domain.UploadInfo, error)

	// Path returns a local path the extractors can read.
	// Returns domain.ErrNotFound if the file does not exist.
	Path(ctx context.Context, filename string) (string, error)

	// List returns all stored uploads sorted by filename
	List(ctx context.Context) ([]*domain.UploadInfo, error)

	// Remove deletes a stored upload
	Remove(ctx context.Context, filename string) error
}
