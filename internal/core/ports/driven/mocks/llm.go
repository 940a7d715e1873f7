package mocks

import (
	"context"
	"sync"

	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

var _ driven.LLMService = (*MockLLMService)(nil)

// MockLLMService is a mock implementation of LLMService for testing.
// By default it answers with a fixed reply and records every prompt.
type MockLLMService struct {
	mu      sync.Mutex
	prompts []string
	Reply   string

	// CompleteFn overrides Complete when set
	CompleteFn func(ctx context.Context, prompt string) (string, error)
	PingFn     func() error
}

// NewMockLLMService creates a mock returning reply
func NewMockLLMService(reply string) *MockLLMService {
	return &MockLLMService{Reply: reply}
}

func (m *MockLLMService) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	fn := m.CompleteFn
	reply := m.Reply
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	return reply, nil
}

func (m *MockLLMService) Model() string {
	return "mock-llm"
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

func (m *MockLLMService) Close() error {
	return nil
}

// Prompts returns all prompts received so far.
func (m *MockLLMService) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
