package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

var (
	_ driven.LLMService = (*OpenAICompatLLM)(nil)
	_ driven.LLMService = (*EchoLLM)(nil)
)

// OpenAICompatLLM sends single-turn chat completions to Groq, OpenAI or
// any other OpenAI-compatible endpoint.
type OpenAICompatLLM struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAICompatLLM creates a chat completion client from settings.
func NewOpenAICompatLLM(settings *domain.LLMSettings) (*OpenAICompatLLM, error) {
	if settings.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required for %s", domain.ErrInvalidInput, settings.Provider)
	}

	cfg := openai.DefaultConfig(settings.APIKey)
	switch {
	case settings.BaseURL != "":
		cfg.BaseURL = settings.BaseURL
	case settings.Provider == domain.AIProviderGroq:
		cfg.BaseURL = domain.DefaultGroqBaseURL
	}

	model := settings.Model
	if model == "" {
		model = domain.DefaultLLMModel
	}
	maxTokens := settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = domain.DefaultLLMMaxTokens
	}

	return &OpenAICompatLLM{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: settings.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (l *OpenAICompatLLM) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: l.temperature,
		MaxTokens:   l.maxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("completion API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (l *OpenAICompatLLM) Model() string {
	return l.model
}

// Ping lists models, which needs a valid key but costs no tokens.
func (l *OpenAICompatLLM) Ping(ctx context.Context) error {
	if _, err := l.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (l *OpenAICompatLLM) Close() error {
	return nil
}

// EchoLLM answers from the prompt itself: it returns the first passage of
// the knowledge-base context, or the no-information reply.
type EchoLLM struct{}

func NewEchoLLM() *EchoLLM {
	return &EchoLLM{}
}

const (
	contextHeader  = "Context from knowledge base:"
	noContextLine  = "No relevant context found."
	noInfoResponse = "I don't have enough information about that topic"
)

func (EchoLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, after, found := strings.Cut(prompt, contextHeader)
	if !found {
		return noInfoResponse, nil
	}
	for _, line := range strings.Split(after, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == noContextLine {
			return noInfoResponse, nil
		}
		return line, nil
	}
	return noInfoResponse, nil
}

func (EchoLLM) Model() string                  { return "echo" }
func (EchoLLM) Ping(ctx context.Context) error { return nil }
func (EchoLLM) Close() error                   { return nil }
