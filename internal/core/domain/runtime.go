package domain

import "sync"

// RuntimeConfig tracks which backends and capabilities are live.
// Backends are fixed at startup; capability flags change when AI services do.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	KnowledgeBackend string // "memory", "postgres" or "qdrant"
	SessionBackend   string // "memory", "redis" or "postgres"
	QueueBackend     string // "memory", "redis" or "postgres"

	embeddingAvailable bool
	llmAvailable       bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(knowledgeBackend, sessionBackend, queueBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		KnowledgeBackend: knowledgeBackend,
		SessionBackend:   sessionBackend,
		QueueBackend:     queueBackend,
	}
}

// EmbeddingAvailable returns whether embedding service is available
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// LLMAvailable returns whether LLM service is available
func (c *RuntimeConfig) LLMAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.llmAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetLLMAvailable updates the LLM availability flag
func (c *RuntimeConfig) SetLLMAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.llmAvailable = available
}

// CanIngest returns true if documents can be embedded
func (c *RuntimeConfig) CanIngest() bool {
	return c.EmbeddingAvailable()
}

// CanChat returns true if both retrieval and generation are possible
func (c *RuntimeConfig) CanChat() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable && c.llmAvailable
}
