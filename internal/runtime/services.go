package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// EngineState reports whether the chat engine finished initializing.
type EngineState string

const (
	EngineUninitialized EngineState = "uninitialized"
	EngineReady         EngineState = "ready"
	EngineFailed        EngineState = "failed"
)

// Services holds the AI services shared by ingestion and chat.
// Initialization is explicit: callers see a typed ready/failed state instead
// of a nil engine. Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	embeddingService driven.EmbeddingService
	llmService       driven.LLMService

	state   EngineState
	failure error
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
		state:  EngineUninitialized,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// Initialize builds both AI services from settings. Any failure leaves the
// engine in EngineFailed with the cause kept for status reporting; the
// embedding service is still installed when only the LLM failed.
func (s *Services) Initialize(ctx context.Context, factory driven.AIServiceFactory, emb *domain.EmbeddingSettings, llm *domain.LLMSettings) error {
	embedding, err := factory.CreateEmbeddingService(emb)
	if err == nil && embedding == nil {
		err = errors.New("embedding provider is not configured")
	}
	if err == nil {
		err = s.ValidateAndSetEmbedding(ctx, embedding)
	}
	if err != nil {
		return s.fail(fmt.Errorf("embedding service: %w", err))
	}

	model, err := factory.CreateLLMService(llm)
	if err == nil && model == nil {
		err = errors.New("LLM provider is not configured (missing API key?)")
	}
	if err != nil {
		return s.fail(fmt.Errorf("llm service: %w", err))
	}
	s.SetLLMService(model)

	s.mu.Lock()
	s.state = EngineReady
	s.failure = nil
	s.mu.Unlock()
	return nil
}

func (s *Services) fail(err error) error {
	s.mu.Lock()
	s.state = EngineFailed
	s.failure = err
	s.mu.Unlock()
	return err
}

// State returns the engine state and, when failed, its cause.
func (s *Services) State() (EngineState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.failure
}

// ChatEngine returns both services, or domain.ErrServiceUnavailable when the
// engine is not ready.
func (s *Services) ChatEngine() (driven.EmbeddingService, driven.LLMService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != EngineReady || s.embeddingService == nil || s.llmService == nil {
		if s.failure != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, s.failure)
		}
		return nil, nil, domain.ErrServiceUnavailable
	}
	return s.embeddingService, s.llmService, nil
}

// Embedder returns the embedding service, or domain.ErrServiceUnavailable.
// Ingestion only needs embeddings, so it works even when the LLM failed.
func (s *Services) Embedder() (driven.EmbeddingService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.embeddingService == nil {
		return nil, fmt.Errorf("%w: no embedding service", domain.ErrServiceUnavailable)
	}
	return s.embeddingService, nil
}

// EmbeddingService returns the current embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// LLMService returns the current LLM service (may be nil)
func (s *Services) LLMService() driven.LLMService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llmService
}

// SetEmbeddingService swaps the embedding service, closing the old one.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil && s.embeddingService != svc {
		_ = s.embeddingService.Close()
	}
	s.embeddingService = svc
	s.config.SetEmbeddingAvailable(svc != nil)
}

// SetLLMService swaps the LLM service, closing the old one.
func (s *Services) SetLLMService(svc driven.LLMService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.llmService != nil && s.llmService != svc {
		_ = s.llmService.Close()
	}
	s.llmService = svc
	s.config.SetLLMAvailable(svc != nil)
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.llmService != nil {
		_ = s.llmService.Close()
		s.llmService = nil
	}

	s.config.SetEmbeddingAvailable(false)
	s.config.SetLLMAvailable(false)
	s.state = EngineUninitialized
	return nil
}

// ValidateAndSetEmbedding health-checks svc before installing it.
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}
	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetLLM pings svc before installing it.
func (s *Services) ValidateAndSetLLM(ctx context.Context, svc driven.LLMService) error {
	if svc == nil {
		s.SetLLMService(nil)
		return nil
	}
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetLLMService(svc)
	return nil
}
