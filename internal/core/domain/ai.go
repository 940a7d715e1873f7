package domain

// AIProvider identifies the AI/embedding provider
type AIProvider string

const (
	// AIProviderLocal is the offline hashing embedder
	AIProviderLocal AIProvider = "local"
	// AIProviderOpenAI is the OpenAI API or any compatible endpoint
	AIProviderOpenAI AIProvider = "openai"
	// AIProviderGroq serves chat completions through an OpenAI-compatible API
	AIProviderGroq AIProvider = "groq"
	// AIProviderEcho returns the prompt tail; useful for demos without a key
	AIProviderEcho AIProvider = "echo"
)

// Defaults for the chat model and embeddings.
const (
	DefaultLLMModel            = "llama-3.3-70b-versatile"
	DefaultGroqBaseURL         = "https://api.groq.com/openai/v1"
	DefaultLLMTemperature      = 0.1
	DefaultLLMMaxTokens        = 1024
	DefaultEmbeddingDimensions = 384
	DefaultLocalEmbeddingModel = "hashing-bow-384"
)

// EmbeddingSettings configures the embedding service
type EmbeddingSettings struct {
	Provider   AIProvider `json:"provider"`
	Model      string     `json:"model"`
	APIKey     string     `json:"-"` // Never serialize to JSON
	BaseURL    string     `json:"base_url,omitempty"`
	Dimensions int        `json:"dimensions"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings configures the LLM service
type LLMSettings struct {
	Provider    AIProvider `json:"provider"`
	Model       string     `json:"model"`
	APIKey      string     `json:"-"` // Never serialize to JSON
	BaseURL     string     `json:"base_url,omitempty"`
	Temperature float32    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens"`
}

// IsConfigured returns true if LLM settings are properly configured
func (l *LLMSettings) IsConfigured() bool {
	if l.Provider == "" {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RequiresAPIKey returns true if this provider requires an API key
func (p AIProvider) RequiresAPIKey() bool {
	switch p {
	case AIProviderLocal, AIProviderEcho:
		return false
	default:
		return true
	}
}

// IsValid returns true if this is a known provider
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderLocal, AIProviderOpenAI, AIProviderGroq, AIProviderEcho:
		return true
	default:
		return false
	}
}
