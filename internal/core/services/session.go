package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
	"github.com/jithsungh/wisebot/internal/runtime"
)

// Ensure SessionManager implements driving.SessionManager
var _ driving.SessionManager = (*SessionManager)(nil)

// DefaultThinkDelay is the pause between the typing and assistant frames
const DefaultThinkDelay = 500 * time.Millisecond

// Outbound texts sent on chat connections.
const (
	msgUnavailable   = "Chatbot service is currently unavailable. Please try again later."
	msgTyping        = "Assistant is typing..."
	msgInvalidFormat = "Invalid message format"
	msgCleared       = "Conversation memory cleared!"
	msgKBUnknown     = "Knowledge base status unknown"

	reasonUnavailable = "Chatbot unavailable"
	reasonReplaced    = "Replaced by new connection"
)

// SessionConfig holds session manager collaborators
type SessionConfig struct {
	Services    *runtime.Services
	Chat        driving.ChatService
	Memory      driving.MemoryService
	Retrieval   driving.RetrievalService
	Connections driven.ConnectionStore

	// ThinkDelay of zero uses DefaultThinkDelay; negative disables it.
	ThinkDelay time.Duration
	Logger     *slog.Logger
}

// SessionManager multiplexes chat connections over the shared chat engine.
// Each connection is served by its own goroutine; messages of one
// connection are handled strictly in order.
type SessionManager struct {
	services    *runtime.Services
	chat        driving.ChatService
	memory      driving.MemoryService
	retrieval   driving.RetrievalService
	connections driven.ConnectionStore
	thinkDelay  time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	channels map[string]driving.Channel // by connection ID
}

// NewSessionManager creates a new session manager
func NewSessionManager(cfg SessionConfig) *SessionManager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := cfg.ThinkDelay
	if delay == 0 {
		delay = DefaultThinkDelay
	}
	return &SessionManager{
		services:    cfg.Services,
		chat:        cfg.Chat,
		memory:      cfg.Memory,
		retrieval:   cfg.Retrieval,
		connections: cfg.Connections,
		thinkDelay:  delay,
		logger:      logger.With("component", "sessions"),
		channels:    make(map[string]driving.Channel),
	}
}

// Serve drives one accepted connection until it closes.
// If the chat engine is not ready the client gets one error frame and a
// 1011 close, and Serve returns domain.ErrServiceUnavailable.
func (m *SessionManager) Serve(ctx context.Context, userID string, ch driving.Channel) error {
	logger := m.logger.With("user_id", userID)

	if _, _, err := m.services.ChatEngine(); err != nil {
		logger.Warn("rejecting connection", "error", err)
		_ = ch.Send(ctx, domain.NewFrame(domain.FrameError, userID, msgUnavailable))
		_ = ch.Close(driving.CloseInternalError, reasonUnavailable)
		return err
	}

	connID := m.register(userID, ch)
	defer m.unregister(userID, connID)
	logger = logger.With("connection_id", connID)
	logger.Info("user connected")

	if _, err := m.memory.GetOrCreate(ctx, userID); err != nil {
		logger.Warn("failed to load conversation", "error", err)
	}

	if err := m.greet(ctx, userID, ch); err != nil {
		logger.Info("connection closed during greeting", "error", err)
		return nil
	}

	for {
		payload, err := ch.Receive(ctx)
		if err != nil {
			logger.Info("user disconnected", "reason", err)
			return nil
		}
		if err := m.handle(ctx, userID, connID, ch, payload); err != nil {
			logger.Info("dropping undeliverable frame", "error", err)
			return nil
		}
	}
}

// register records the connection and closes any connection it replaces.
func (m *SessionManager) register(userID string, ch driving.Channel) string {
	connID := uuid.NewString()

	m.mu.Lock()
	m.channels[connID] = ch
	prev := m.connections.Put(domain.ConnectionRecord{
		ConnectionID: connID,
		UserID:       userID,
		ConnectedAt:  time.Now(),
	})
	var old driving.Channel
	if prev != nil {
		old = m.channels[prev.ConnectionID]
		delete(m.channels, prev.ConnectionID)
	}
	m.mu.Unlock()

	if old != nil {
		m.logger.Info("replacing connection", "user_id", userID, "previous", prev.ConnectionID)
		_ = old.Close(driving.CloseNormal, reasonReplaced)
	}
	return connID
}

// unregister removes the record only if it still belongs to connID.
func (m *SessionManager) unregister(userID, connID string) {
	m.mu.Lock()
	ch := m.channels[connID]
	delete(m.channels, connID)
	m.connections.Remove(userID, connID)
	m.mu.Unlock()

	if ch != nil {
		_ = ch.Close(driving.CloseNormal, "")
	}
}

func (m *SessionManager) greet(ctx context.Context, userID string, ch driving.Channel) error {
	welcome := fmt.Sprintf("Welcome! You're connected as user %s", userID)
	if err := ch.Send(ctx, domain.NewFrame(domain.FrameSystem, userID, welcome)); err != nil {
		return err
	}

	kb := msgKBUnknown
	if info, err := m.retrieval.KnowledgeBaseInfo(ctx); err == nil {
		kb = fmt.Sprintf("Knowledge base loaded with %d documents", info.DocumentCount)
	} else {
		m.logger.Warn("knowledge base info unavailable", "error", err)
	}
	return ch.Send(ctx, domain.NewFrame(domain.FrameSystem, userID, kb))
}

// handle processes one inbound payload. A returned error means the
// connection can no longer be written to.
func (m *SessionManager) handle(ctx context.Context, userID, connID string, ch driving.Channel, payload []byte) error {
	var in domain.InboundMessage
	if err := json.Unmarshal(payload, &in); err != nil {
		return ch.Send(ctx, domain.NewFrame(domain.FrameError, userID, msgInvalidFormat))
	}

	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil
	}

	switch domain.ParseCommand(message) {
	case domain.CommandClear:
		return m.clear(ctx, userID, ch)
	case domain.CommandHistory:
		return m.history(ctx, userID, ch)
	case domain.CommandUsers:
		users := m.connections.List()
		frame := domain.NewFrame(domain.FrameSystem, userID, fmt.Sprintf("%d active users", len(users))).WithData(users)
		return ch.Send(ctx, frame)
	}

	return m.ask(ctx, userID, connID, ch, message)
}

func (m *SessionManager) clear(ctx context.Context, userID string, ch driving.Channel) error {
	if err := m.memory.Clear(ctx, userID); err != nil {
		return ch.Send(ctx, domain.NewFrame(domain.FrameError, userID, "Failed to clear memory: "+err.Error()))
	}
	return ch.Send(ctx, domain.NewFrame(domain.FrameSystem, userID, msgCleared))
}

func (m *SessionManager) history(ctx context.Context, userID string, ch driving.Channel) error {
	exchanges, err := m.memory.Exchanges(ctx, userID)
	if err != nil {
		return ch.Send(ctx, domain.NewFrame(domain.FrameError, userID, "Failed to load history: "+err.Error()))
	}
	msg := fmt.Sprintf("You have %d conversations in history", len(exchanges))
	return ch.Send(ctx, domain.NewFrame(domain.FrameSystem, userID, msg).WithData(exchanges))
}

// ask runs the question flow: echo, typing, think delay, answer.
// The answer is computed even if the connection closes meanwhile.
func (m *SessionManager) ask(ctx context.Context, userID, connID string, ch driving.Channel, message string) error {
	if err := ch.Send(ctx, domain.NewFrame(domain.FrameUser, userID, message)); err != nil {
		return err
	}
	if err := ch.Send(ctx, domain.NewFrame(domain.FrameTyping, userID, msgTyping)); err != nil {
		return err
	}

	if m.thinkDelay > 0 {
		select {
		case <-time.After(m.thinkDelay):
		case <-ctx.Done():
		}
	}

	answer := m.chat.Answer(context.WithoutCancel(ctx), message, userID)
	m.connections.Increment(userID, connID)

	frame := domain.NewFrame(domain.FrameAssistant, userID, answer.Text).WithAnswer(answer.Confidence, len(answer.Context))
	return ch.Send(ctx, frame)
}

// ActiveUsers returns the live connection records.
func (m *SessionManager) ActiveUsers() []domain.ConnectionRecord {
	return m.connections.List()
}

// Status summarizes the chat subsystem. Status is "online", or "error"
// with the cause when the engine or the knowledge base is unavailable.
func (m *SessionManager) Status(ctx context.Context) *domain.ChatStatus {
	status := &domain.ChatStatus{
		Status:      "online",
		ActiveUsers: m.connections.Count(),
	}

	if _, _, err := m.services.ChatEngine(); err != nil {
		status.Status = "error"
		status.Error = err.Error()
		return status
	}

	info, err := m.retrieval.KnowledgeBaseInfo(ctx)
	if err != nil {
		status.Status = "error"
		status.Error = err.Error()
		return status
	}
	status.KnowledgeBase = info

	if n, err := m.memory.KnownUsers(ctx); err == nil {
		status.ChatbotUsers = n
	} else {
		m.logger.Warn("failed to count conversations", "error", err)
	}
	return status
}
