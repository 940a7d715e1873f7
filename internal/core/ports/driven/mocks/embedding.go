package mocks

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*MockEmbeddingService)(nil)

// MockEmbeddingService is a mock implementation of EmbeddingService for testing.
// Vectors are derived from an FNV hash of the text, so equal texts embed equally.
type MockEmbeddingService struct {
	mu         sync.Mutex
	dimensions int
	outputDims int
	model      string
	failNext   error
	calls      int

	// EmbedManyFn overrides EmbedMany when set
	EmbedManyFn func(ctx context.Context, texts []string) ([][]float32, error)
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 384,
		model:      "mock-embedding-model",
	}
}

func (m *MockEmbeddingService) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedManyFn != nil {
		return m.EmbedManyFn(ctx, texts)
	}

	m.mu.Lock()
	m.calls++
	if err := m.failNext; err != nil {
		m.failNext = nil
		m.mu.Unlock()
		return nil, err
	}
	dims := m.dimensions
	if m.outputDims > 0 {
		dims = m.outputDims
	}
	m.mu.Unlock()

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = generateEmbedding(text, dims)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	out, err := m.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *MockEmbeddingService) Dimensions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

// generateEmbedding generates a deterministic embedding based on text hash
func generateEmbedding(text string, dims int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float32, dims)
	for i := range embedding {
		// Generate deterministic pseudo-random values
		seed = seed*1103515245 + 12345
		embedding[i] = float32(seed%1000) / 1000.0
	}
	return embedding
}

// Helper methods for testing

// SetFailNext makes the next call return err.
func (m *MockEmbeddingService) SetFailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MockEmbeddingService) SetDimensions(dim int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimensions = dim
}

// SetOutputDimensions makes the service return vectors of a different length
// than it advertises.
func (m *MockEmbeddingService) SetOutputDimensions(dim int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputDims = dim
}

// Calls returns how many embedding calls were made.
func (m *MockEmbeddingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
