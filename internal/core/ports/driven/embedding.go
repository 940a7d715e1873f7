package driven

import (
	"context"
)

// EmbeddingService generates text embeddings
type EmbeddingService interface {
	// EmbedMany generates embeddings for multiple texts in one call.
	// The result has one vector per input, in input order.
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedOne generates an embedding for a single text (usually a query)
	EmbedOne(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Model returns the model name being used
	Model() string

	// HealthCheck verifies the embedding service is available
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}
