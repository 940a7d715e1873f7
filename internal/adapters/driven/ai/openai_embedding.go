package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Ensure OpenAIEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

// embeddingBatchSize caps inputs per /embeddings request
const embeddingBatchSize = 100

// Model dimensions for OpenAI embedding models
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedding implements EmbeddingService against any OpenAI-compatible
// /embeddings endpoint.
type OpenAIEmbedding struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedding creates a new OpenAI embedding service.
// dimensions of 0 falls back to the known size for model.
func NewOpenAIEmbedding(apiKey, model, baseURL string, dimensions int) (*OpenAIEmbedding, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrInvalidInput)
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dimensions <= 0 {
		d, ok := openAIModelDimensions[model]
		if !ok {
			return nil, fmt.Errorf("%w: dimensions required for model %s", domain.ErrInvalidInput, model)
		}
		dimensions = d
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIEmbedding{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// EmbedMany embeds texts in batches, keeping input order.
func (e *OpenAIEmbedding) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embeddingBatchSize {
		end := min(start+embeddingBatchSize, len(texts))
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (e *OpenAIEmbedding) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("embedding API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("%w: model returned %d, configured %d", domain.ErrDimensionMismatch, len(d.Embedding), e.dimensions)
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (e *OpenAIEmbedding) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedding) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedding) Model() string {
	return e.model
}

// HealthCheck makes a small embedding request to verify connectivity
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedOne(ctx, "health check")
	return err
}

func (e *OpenAIEmbedding) Close() error {
	return nil
}
