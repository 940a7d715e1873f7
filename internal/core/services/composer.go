package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
	"github.com/jithsungh/wisebot/internal/runtime"
)

// Ensure AnswerComposer implements driving.ChatService
var _ driving.ChatService = (*AnswerComposer)(nil)

const (
	promptPassages = 3
	promptTurns    = 3
)

// ConversationMemory is the part of the memory manager the composer uses.
type ConversationMemory interface {
	Recent(ctx context.Context, userID string, n int) ([]domain.ConversationTurn, error)
	Append(ctx context.Context, userID, userText, assistantText string) error
}

// ComposerConfig holds answer composer collaborators
type ComposerConfig struct {
	Services        *runtime.Services
	Retrieval       driving.RetrievalService
	Memory          ConversationMemory
	K               int
	UpstreamTimeout time.Duration
	Logger          *slog.Logger
}

// AnswerComposer turns a question into one model call grounded on retrieved
// passages and recent history.
type AnswerComposer struct {
	services  *runtime.Services
	retrieval driving.RetrievalService
	memory    ConversationMemory
	k         int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAnswerComposer creates a new answer composer
func NewAnswerComposer(cfg ComposerConfig) *AnswerComposer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.UpstreamTimeout
	if timeout == 0 {
		timeout = DefaultUpstreamTimeout
	}
	return &AnswerComposer{
		services:  cfg.Services,
		retrieval: cfg.Retrieval,
		memory:    cfg.Memory,
		k:         cfg.K,
		timeout:   timeout,
		logger:    logger.With("component", "composer"),
	}
}

// Answer never fails: errors become the answer text with zero confidence.
func (c *AnswerComposer) Answer(ctx context.Context, query, userID string) *domain.Answer {
	answer, err := c.answer(ctx, query, userID)
	if err != nil {
		c.logger.Warn("answer failed", "user_id", userID, "error", err)
		return &domain.Answer{
			Text:    "Sorry, I encountered an error: " + err.Error(),
			Context: []string{},
		}
	}
	return answer
}

func (c *AnswerComposer) answer(ctx context.Context, query, userID string) (*domain.Answer, error) {
	_, llm, err := c.services.ChatEngine()
	if err != nil {
		return nil, err
	}

	retrieval, err := c.retrieval.Retrieve(ctx, query, c.k)
	if err != nil {
		return nil, err
	}
	texts := retrieval.Texts()

	history, err := c.memory.Recent(ctx, userID, promptTurns)
	if err != nil {
		return nil, err
	}

	top := texts
	if len(top) > promptPassages {
		top = top[:promptPassages]
	}
	prompt := BuildPrompt(top, history, query)
	c.logger.Debug("prompt built", "user_id", userID, "tokens", CountTokens(prompt), "passages", len(top), "turns", len(history))

	var reply string
	err = callUpstream(ctx, c.timeout, "complete", func(ctx context.Context) error {
		var err error
		reply, err = llm.Complete(ctx, prompt)
		return err
	})
	if err != nil {
		return nil, classify(domain.ErrModelFailure, err)
	}

	if err := c.memory.Append(ctx, userID, query, reply); err != nil {
		return nil, err
	}

	return &domain.Answer{
		Text:           reply,
		Confidence:     retrieval.Confidence,
		Context:        texts,
		RetrievedCount: len(texts),
	}, nil
}

// BuildPrompt renders the single prompt sent to the model.
func BuildPrompt(passages []string, history []domain.ConversationTurn, query string) string {
	contextText := "No relevant context found."
	if len(passages) > 0 {
		contextText = strings.Join(passages, "\n")
	}

	historyText := "No previous conversation."
	if len(history) > 0 {
		lines := make([]string, 0, len(history))
		for _, t := range history {
			lines = append(lines, fmt.Sprintf("User: %s\nAssistant: %s", t.User.Content, t.Assistant.Content))
		}
		historyText = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`You are a helpful AI assistant with access to a knowledge base. Use the context and the conversation
history to answer the user's question.

Context from knowledge base:
%s

Recent conversation:
%s

User question: %s

Instructions:
- Answer using the context and conversation history above.
- If the information isn't in the context, say "I don't have enough information about that topic".
- Be conversational and keep the answer concise.
- Do not add citations, sources, or preamble.

Answer:`, contextText, historyText, query)
}
