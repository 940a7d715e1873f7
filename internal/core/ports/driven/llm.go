package driven

import (
	"context"
)

// LLMService provides text completion for answer generation
type LLMService interface {
	// Complete sends a single prompt and returns the model's reply
	Complete(ctx context.Context, prompt string) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
