package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// mockEmbeddingService is a mock implementation for testing
type mockEmbeddingService struct {
	healthCheckErr error
	closed         bool
}

func (m *mockEmbeddingService) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func (m *mockEmbeddingService) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return 384
}

func (m *mockEmbeddingService) Model() string {
	return "test-model"
}

func (m *mockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.healthCheckErr
}

func (m *mockEmbeddingService) Close() error {
	m.closed = true
	return nil
}

// mockLLMService is a mock implementation for testing
type mockLLMService struct {
	pingErr error
	closed  bool
}

func (m *mockLLMService) Complete(ctx context.Context, prompt string) (string, error) {
	return "ok", nil
}

func (m *mockLLMService) Model() string {
	return "test-llm"
}

func (m *mockLLMService) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockLLMService) Close() error {
	m.closed = true
	return nil
}

func TestNewServices(t *testing.T) {
	config := domain.NewRuntimeConfig("memory", "memory", "memory")
	services := NewServices(config)

	if services == nil {
		t.Fatal("expected non-nil services")
	}
	if services.Config() != config {
		t.Error("expected config to match")
	}
}

func TestServices_EmbeddingService(t *testing.T) {
	config := domain.NewRuntimeConfig("memory", "memory", "memory")
	services := NewServices(config)

	// Initially nil
	if services.EmbeddingService() != nil {
		t.Error("expected nil embedding service initially")
	}

	// Set embedding service
	mock := &mockEmbeddingService{}
	services.SetEmbeddingService(mock)

	if services.EmbeddingService() == nil {
		t.Error("expected non-nil embedding service after set")
	}
	if !config.EmbeddingAvailable() {
		t.Error("expected embedding to be available")
	}

	// Set to nil
	services.SetEmbeddingService(nil)
	if services.EmbeddingService() != nil {
		t.Error("expected nil embedding service after clearing")
	}
	if config.EmbeddingAvailable() {
		t.Error("expected embedding to be unavailable")
	}
	if !mock.closed {
		t.Error("expected old service to be closed")
	}
}

func TestServices_LLMService(t *testing.T) {
	config := domain.NewRuntimeConfig("memory", "memory", "memory")
	services := NewServices(config)

	// Initially nil
	if services.LLMService() != nil {
		t.Error("expected nil LLM service initially")
	}

	// Set LLM service
	mock := &mockLLMService{}
	services.SetLLMService(mock)

	if services.LLMService() == nil {
		t.Error("expected non-nil LLM service after set")
	}
	if !config.LLMAvailable() {
		t.Error("expected LLM to be available")
	}

	// Set to nil
	services.SetLLMService(nil)
	if services.LLMService() != nil {
		t.Error("expected nil LLM service after clearing")
	}
	if config.LLMAvailable() {
		t.Error("expected LLM to be unavailable")
	}
	if !mock.closed {
		t.Error("expected old service to be closed")
	}
}

func TestServices_ValidateAndSetEmbedding(t *testing.T) {
	config := domain.NewRuntimeConfig("memory", "memory", "memory")
	services := NewServices(config)
	ctx := context.Background()

	t.Run("successful validation", func(t *testing.T) {
		mock := &mockEmbeddingService{}
		err := services.ValidateAndSetEmbedding(ctx, mock)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if services.EmbeddingService() == nil {
			t.Error("expected embedding service to be set")
		}
	})

	t.Run("failed validation", func(t *testing.T) {
		mock := &mockEmbeddingService{healthCheckErr: errors.New("connection failed")}
		err := services.ValidateAndSetEmbedding(ctx, mock)
		if err == nil {
			t.Error("expected error")
		}
		if !mock.closed {
			t.Error("expected failed service to be closed")
		}
	})

	t.Run("nil service", func(t *testing.T) {
		err := services.ValidateAndSetEmbedding(ctx, nil)
		if err != nil {
			t.Errorf("unexpected error for nil service: %v", err)
		}
	})
}

func TestServices_ValidateAndSetLLM(t *testing.T) {
	config := domain.NewRuntimeConfig("memory", "memory", "memory")
	services := NewServices(config)
	ctx := context.Background()

	t.Run("successful validation", func(t *testing.T) {
		mock := &mockLLMService{}
		err := services.ValidateAndSetLLM(ctx, mock)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if services.LLMService() == nil {
			t.Error("expected LLM service to be set")
		}
	})

	t.Run("failed validation", func(t *testing.T) {
		mock := &mockLLMService{pingErr: errors.New("connection failed")}
		err := services.ValidateAndSetLLM(ctx, mock)
		if err == nil {
			t.Error("expected error")
		}
		if !mock.closed {
			t.Error("expected failed service to be closed")
		}
	})

	t.Run("nil service", func(t *testing.T) {
		err := services.ValidateAndSetLLM(ctx, nil)
		if err != nil {
			t.Errorf("unexpected error for nil service: %v", err)
		}
	})
}

func TestServices_Close(t *testing.T) {
	config := domain.NewRuntimeConfig("memory", "memory", "memory")
	services := NewServices(config)

	embMock := &mockEmbeddingService{}
	llmMock := &mockLLMService{}

	services.SetEmbeddingService(embMock)
	services.SetLLMService(llmMock)

	err := services.Close()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !embMock.closed {
		t.Error("expected embedding service to be closed")
	}
	if !llmMock.closed {
		t.Error("expected LLM service to be closed")
	}
}

func TestServices_ReplaceService_ClosesOld(t *testing.T) {
	config := domain.NewRuntimeConfig("memory", "memory", "memory")
	services := NewServices(config)

	old := &mockEmbeddingService{}
	new := &mockEmbeddingService{}

	services.SetEmbeddingService(old)
	services.SetEmbeddingService(new)

	if !old.closed {
		t.Error("expected old service to be closed when replaced")
	}
	if new.closed {
		t.Error("expected new service to remain open")
	}
}

// stubFactory returns fixed services or errors
type stubFactory struct {
	embedding    driven.EmbeddingService
	embeddingErr error
	llm          driven.LLMService
	llmErr       error
}

func (f *stubFactory) CreateEmbeddingService(*domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return f.embedding, f.embeddingErr
}

func (f *stubFactory) CreateLLMService(*domain.LLMSettings) (driven.LLMService, error) {
	return f.llm, f.llmErr
}

func TestServices_Initialize(t *testing.T) {
	ctx := context.Background()

	t.Run("ready", func(t *testing.T) {
		services := NewServices(domain.NewRuntimeConfig("memory", "memory", "memory"))
		if state, _ := services.State(); state != EngineUninitialized {
			t.Fatalf("expected uninitialized, got %s", state)
		}

		f := &stubFactory{embedding: &mockEmbeddingService{}, llm: &mockLLMService{}}
		if err := services.Initialize(ctx, f, nil, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		state, failure := services.State()
		if state != EngineReady || failure != nil {
			t.Errorf("expected ready, got %s (%v)", state, failure)
		}
		emb, llm, err := services.ChatEngine()
		if err != nil || emb == nil || llm == nil {
			t.Errorf("expected chat engine, got %v", err)
		}
		if !services.Config().CanChat() {
			t.Error("expected chat capability")
		}
	})

	t.Run("missing llm", func(t *testing.T) {
		services := NewServices(domain.NewRuntimeConfig("memory", "memory", "memory"))
		f := &stubFactory{embedding: &mockEmbeddingService{}}

		if err := services.Initialize(ctx, f, nil, nil); err == nil {
			t.Fatal("expected error")
		}
		state, failure := services.State()
		if state != EngineFailed || failure == nil {
			t.Errorf("expected failed with cause, got %s (%v)", state, failure)
		}

		_, _, err := services.ChatEngine()
		if !errors.Is(err, domain.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}

		// Ingestion still works with embeddings alone
		if _, err := services.Embedder(); err != nil {
			t.Errorf("expected embedder, got %v", err)
		}
	})

	t.Run("embedding health check fails", func(t *testing.T) {
		services := NewServices(domain.NewRuntimeConfig("memory", "memory", "memory"))
		emb := &mockEmbeddingService{healthCheckErr: errors.New("model not loaded")}
		f := &stubFactory{embedding: emb, llm: &mockLLMService{}}

		if err := services.Initialize(ctx, f, nil, nil); err == nil {
			t.Fatal("expected error")
		}
		if !emb.closed {
			t.Error("expected failed embedding service to be closed")
		}
		if _, err := services.Embedder(); !errors.Is(err, domain.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestServices_ChatEngineBeforeInitialize(t *testing.T) {
	services := NewServices(domain.NewRuntimeConfig("memory", "memory", "memory"))
	services.SetEmbeddingService(&mockEmbeddingService{})
	services.SetLLMService(&mockLLMService{})

	_, _, err := services.ChatEngine()
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}
