// Package config loads WiseBot settings from .env, an optional YAML file and
// the process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// EnvConfigPath names the environment variable holding the YAML file path.
const EnvConfigPath = "WISEBOT_CONFIG"

// AppConfig covers the process itself.
type AppConfig struct {
	Name      string `yaml:"name"`
	Debug     bool   `yaml:"debug"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	RunMode   string `yaml:"run_mode"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// LLMConfig selects the chat model.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// EmbeddingConfig selects the embedding model.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

// KnowledgeConfig controls storage and chunking of the knowledge base.
type KnowledgeConfig struct {
	Backend      string `yaml:"backend"`
	Collection   string `yaml:"collection"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	RetrievalK   int    `yaml:"retrieval_k"`
}

// DatabaseConfig points at PostgreSQL.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig points at Redis. An empty URL keeps sessions, jobs and the
// queue in process.
type RedisConfig struct {
	URL        string        `yaml:"url"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// QdrantConfig points at Qdrant's gRPC port.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
}

// ChatConfig tunes the conversation path.
type ChatConfig struct {
	MemoryWindow    int           `yaml:"memory_window"`
	ThinkDelay      time.Duration `yaml:"think_delay"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
}

// WorkerConfig tunes async ingestion.
type WorkerConfig struct {
	Concurrency    int           `yaml:"concurrency"`
	DequeueTimeout time.Duration `yaml:"dequeue_timeout"`
}

// UploadConfig controls the upload directory.
type UploadConfig struct {
	Dir      string `yaml:"dir"`
	Watch    bool   `yaml:"watch"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Config is the root configuration.
type Config struct {
	App       AppConfig       `yaml:"app"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Chat      ChatConfig      `yaml:"chat"`
	Worker    WorkerConfig    `yaml:"worker"`
	Uploads   UploadConfig    `yaml:"uploads"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "WiseBot",
			Host:      "0.0.0.0",
			Port:      8000,
			RunMode:   "all",
			LogLevel:  "info",
			LogFormat: "text",
		},
		LLM: LLMConfig{
			Provider:    string(domain.AIProviderGroq),
			Model:       domain.DefaultLLMModel,
			Temperature: domain.DefaultLLMTemperature,
			MaxTokens:   domain.DefaultLLMMaxTokens,
		},
		Embedding: EmbeddingConfig{
			Provider:   string(domain.AIProviderLocal),
			Model:      domain.DefaultLocalEmbeddingModel,
			Dimensions: domain.DefaultEmbeddingDimensions,
		},
		Knowledge: KnowledgeConfig{
			Backend:      "memory",
			Collection:   domain.DefaultCollection,
			ChunkSize:    300,
			ChunkOverlap: 50,
			RetrievalK:   5,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			SessionTTL: 7 * 24 * time.Hour,
		},
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		Chat: ChatConfig{
			MemoryWindow:    domain.DefaultMemoryWindow,
			ThinkDelay:      500 * time.Millisecond,
			UpstreamTimeout: 30 * time.Second,
		},
		Worker: WorkerConfig{
			Concurrency:    2,
			DequeueTimeout: 5 * time.Second,
		},
		Uploads: UploadConfig{
			Dir:      "uploads",
			MaxBytes: 50 << 20,
		},
	}
}

// Load builds the configuration. A missing .env file is ignored. path names
// an optional YAML file; when empty, WISEBOT_CONFIG is consulted.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables. lookup is os.LookupEnv outside tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.str("APP_NAME", &c.App.Name)
	e.boolean("DEBUG", &c.App.Debug)
	e.str("HOST", &c.App.Host)
	e.integer("PORT", &c.App.Port)
	e.str("RUN_MODE", &c.App.RunMode)
	e.str("LOG_LEVEL", &c.App.LogLevel)
	e.str("LOG_FORMAT", &c.App.LogFormat)

	e.str("LLM_PROVIDER", &c.LLM.Provider)
	e.str("LLM_MODEL", &c.LLM.Model)
	e.str("LLM_BASE_URL", &c.LLM.BaseURL)
	e.float32("LLM_TEMPERATURE", &c.LLM.Temperature)
	e.integer("LLM_MAX_TOKENS", &c.LLM.MaxTokens)

	e.str("EMBEDDING_PROVIDER", &c.Embedding.Provider)
	e.str("EMBEDDING_MODEL", &c.Embedding.Model)
	e.str("EMBEDDING_BASE_URL", &c.Embedding.BaseURL)
	e.integer("EMBEDDING_DIMENSIONS", &c.Embedding.Dimensions)

	// Keys come from the provider-specific variables.
	switch domain.AIProvider(c.LLM.Provider) {
	case domain.AIProviderGroq:
		e.str("GROQ_API_KEY", &c.LLM.APIKey)
	case domain.AIProviderOpenAI:
		e.str("OPENAI_API_KEY", &c.LLM.APIKey)
	}
	e.str("LLM_API_KEY", &c.LLM.APIKey)
	e.str("OPENAI_API_KEY", &c.Embedding.APIKey)
	e.str("EMBEDDING_API_KEY", &c.Embedding.APIKey)

	e.str("KNOWLEDGE_BACKEND", &c.Knowledge.Backend)
	e.str("COLLECTION_NAME", &c.Knowledge.Collection)
	e.integer("CHUNK_SIZE", &c.Knowledge.ChunkSize)
	e.integer("CHUNK_OVERLAP", &c.Knowledge.ChunkOverlap)
	e.integer("RETRIEVAL_K", &c.Knowledge.RetrievalK)

	e.str("DATABASE_URL", &c.Database.URL)
	e.integer("DB_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	e.integer("DB_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)

	e.str("REDIS_URL", &c.Redis.URL)
	e.duration("SESSION_TTL", &c.Redis.SessionTTL)

	e.str("QDRANT_HOST", &c.Qdrant.Host)
	e.integer("QDRANT_PORT", &c.Qdrant.Port)
	e.str("QDRANT_API_KEY", &c.Qdrant.APIKey)
	e.boolean("QDRANT_USE_TLS", &c.Qdrant.UseTLS)

	e.integer("MEMORY_WINDOW", &c.Chat.MemoryWindow)
	e.duration("THINK_DELAY", &c.Chat.ThinkDelay)
	e.duration("UPSTREAM_TIMEOUT", &c.Chat.UpstreamTimeout)

	e.integer("WORKER_CONCURRENCY", &c.Worker.Concurrency)
	e.duration("WORKER_DEQUEUE_TIMEOUT", &c.Worker.DequeueTimeout)

	e.str("UPLOAD_DIR", &c.Uploads.Dir)
	e.boolean("WATCH_UPLOADS", &c.Uploads.Watch)

	return errors.Join(e.errs...)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Knowledge.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.Knowledge.ChunkSize))
	}
	if c.Knowledge.ChunkOverlap < 0 || c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk overlap %d must be in [0, chunk size %d)", c.Knowledge.ChunkOverlap, c.Knowledge.ChunkSize))
	}
	if c.Knowledge.RetrievalK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval k must be positive, got %d", c.Knowledge.RetrievalK))
	}
	if c.Chat.MemoryWindow <= 0 {
		errs = append(errs, fmt.Errorf("memory window must be positive, got %d", c.Chat.MemoryWindow))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions))
	}
	if c.Worker.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("worker concurrency must be positive, got %d", c.Worker.Concurrency))
	}
	switch c.Knowledge.Backend {
	case "memory", "qdrant":
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("postgres backend requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown knowledge backend %q", c.Knowledge.Backend))
	}
	switch c.App.RunMode {
	case "api", "worker", "all":
	default:
		errs = append(errs, fmt.Errorf("unknown run mode %q (use: api, worker, or all)", c.App.RunMode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// EmbeddingSettings converts to the domain settings consumed by the AI factory.
func (c *Config) EmbeddingSettings() *domain.EmbeddingSettings {
	return &domain.EmbeddingSettings{
		Provider:   domain.AIProvider(c.Embedding.Provider),
		Model:      c.Embedding.Model,
		APIKey:     c.Embedding.APIKey,
		BaseURL:    c.Embedding.BaseURL,
		Dimensions: c.Embedding.Dimensions,
	}
}

// LLMSettings converts to the domain settings consumed by the AI factory.
func (c *Config) LLMSettings() *domain.LLMSettings {
	baseURL := c.LLM.BaseURL
	if baseURL == "" && domain.AIProvider(c.LLM.Provider) == domain.AIProviderGroq {
		baseURL = domain.DefaultGroqBaseURL
	}
	return &domain.LLMSettings{
		Provider:    domain.AIProvider(c.LLM.Provider),
		Model:       c.LLM.Model,
		APIKey:      c.LLM.APIKey,
		BaseURL:     baseURL,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
	}
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) float32(key string, dst *float32) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = float32(f)
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			*dst = true
		case "false", "0", "no":
			*dst = false
		default:
			e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		}
	}
}

// duration accepts Go durations ("500ms") or bare seconds ("2", "0.5").
func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return
	}
	*dst = time.Duration(secs * float64(time.Second))
}
