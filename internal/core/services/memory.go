package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
)

// Ensure MemoryManager implements driving.MemoryService
var _ driving.MemoryService = (*MemoryManager)(nil)

// MemoryConfig holds conversation memory settings
type MemoryConfig struct {
	// Store receives a write-through copy of every change
	Store driven.SessionStore

	// Window is the number of turns kept per user
	Window int

	Logger *slog.Logger
}

// MemoryManager owns one bounded conversation per user.
// The map lock only guards lookups; each user has their own lock, so
// users never wait on each other.
type MemoryManager struct {
	store  driven.SessionStore
	window int
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session *domain.UserSession
}

// NewMemoryManager creates a new memory manager
func NewMemoryManager(cfg MemoryConfig) *MemoryManager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	window := cfg.Window
	if window <= 0 {
		window = domain.DefaultMemoryWindow
	}
	return &MemoryManager{
		store:    cfg.Store,
		window:   window,
		logger:   logger.With("component", "memory"),
		sessions: make(map[string]*sessionEntry),
	}
}

// withSession runs fn holding the user's lock, loading or creating the
// session first. fn works on a copy; when it reports a change the copy is
// saved and only then replaces the cached session, so a failed save leaves
// memory as it was.
func (m *MemoryManager) withSession(ctx context.Context, userID string, fn func(*domain.UserSession) bool) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	m.mu.Lock()
	e, ok := m.sessions[userID]
	if !ok {
		e = &sessionEntry{}
		m.sessions[userID] = e
	}
	m.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	created := false
	if e.session == nil {
		session, err := m.store.Get(ctx, userID)
		switch {
		case err == nil:
			m.logger.Debug("restored conversation", "user_id", userID, "turns", len(session.History))
			e.session = session
		case errors.Is(err, domain.ErrNotFound):
			created = true
		default:
			return fmt.Errorf("load conversation %s: %w", userID, err)
		}
	}

	var next *domain.UserSession
	if created {
		next = domain.NewUserSession(userID)
	} else {
		next = e.session.Clone()
	}

	changed := fn(next)
	if !changed && !created {
		return nil
	}
	if err := m.store.Save(ctx, next.Clone()); err != nil {
		return fmt.Errorf("save conversation %s: %w", userID, err)
	}
	e.session = next
	return nil
}

func (m *MemoryManager) GetOrCreate(ctx context.Context, userID string) (*domain.UserSession, error) {
	var out *domain.UserSession
	err := m.withSession(ctx, userID, func(s *domain.UserSession) bool {
		out = s.Clone()
		return false
	})
	return out, err
}

func (m *MemoryManager) Append(ctx context.Context, userID, userText, assistantText string) error {
	return m.withSession(ctx, userID, func(s *domain.UserSession) bool {
		s.Append(domain.NewConversationTurn(userText, assistantText), m.window)
		return true
	})
}

func (m *MemoryManager) History(ctx context.Context, userID string) ([]domain.ConversationTurn, error) {
	var out []domain.ConversationTurn
	err := m.withSession(ctx, userID, func(s *domain.UserSession) bool {
		out = s.Clone().History
		return false
	})
	return out, err
}

func (m *MemoryManager) Exchanges(ctx context.Context, userID string) ([]domain.Exchange, error) {
	var out []domain.Exchange
	err := m.withSession(ctx, userID, func(s *domain.UserSession) bool {
		out = s.Exchanges()
		return false
	})
	return out, err
}

// Recent returns up to n newest turns for prompt building.
func (m *MemoryManager) Recent(ctx context.Context, userID string, n int) ([]domain.ConversationTurn, error) {
	var out []domain.ConversationTurn
	err := m.withSession(ctx, userID, func(s *domain.UserSession) bool {
		out = s.Recent(n)
		return false
	})
	return out, err
}

func (m *MemoryManager) Clear(ctx context.Context, userID string) error {
	err := m.withSession(ctx, userID, func(s *domain.UserSession) bool {
		s.Clear()
		return true
	})
	if err == nil {
		m.logger.Info("conversation cleared", "user_id", userID)
	}
	return err
}

// KnownUsers counts users seen by this process or persisted in the store.
func (m *MemoryManager) KnownUsers(ctx context.Context) (int, error) {
	ids, err := m.store.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list conversations: %w", err)
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}

	m.mu.Lock()
	for id := range m.sessions {
		seen[id] = struct{}{}
	}
	m.mu.Unlock()

	return len(seen), nil
}
