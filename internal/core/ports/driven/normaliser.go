package driven

import (
	"context"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// TextNormaliser cleans raw text before chunking.
// Implementations are deterministic and idempotent; they never fail.
type TextNormaliser interface {
	Normalise(text string) string
}

// PostProcessor applies post-processing to normalized text chunks.
// Processors form a pipeline: Chunker -> Trimmer -> MetadataStamper.
type PostProcessor interface {
	// Process applies post-processing to content chunks.
	// The first processor (Chunker) receives a single chunk with the full content.
	// Subsequent processors receive the chunks from the previous stage.
	Process(chunks []domain.Chunk) []domain.Chunk

	// Name returns the processor name for logging/debugging.
	Name() string

	// Order returns the processor order in the pipeline (lower = earlier).
	Order() int
}

// PostProcessorPipeline chains multiple post-processors in order.
type PostProcessorPipeline interface {
	// Process applies all processors in order.
	// Empty input yields no chunks.
	Process(content string) []domain.Chunk

	// Add adds a processor to the pipeline.
	Add(processor PostProcessor)

	// List returns processor names in order.
	List() []string
}

// TextExtractor turns a stored file into plain text.
type TextExtractor interface {
	// Extract reads the file at path. Missing files fail with domain.ErrNotFound.
	Extract(ctx context.Context, path string) (string, error)

	// Extensions returns lowercase extensions including the dot, e.g. ".pdf".
	Extensions() []string

	// Priority orders extractors sharing an extension (higher wins).
	Priority() int
}

// ExtractorRegistry selects a TextExtractor by file extension.
type ExtractorRegistry interface {
	// Extract dispatches on the extension of path.
	// Unknown extensions fail with domain.ErrUnsupportedFormat.
	Extract(ctx context.Context, path string) (string, error)

	// Supports reports whether some extractor handles path.
	Supports(path string) bool

	// Register adds an extractor.
	Register(extractor TextExtractor)

	// List returns all registered extensions.
	List() []string
}
