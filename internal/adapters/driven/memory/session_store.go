package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Ensure SessionStore implements driven.SessionStore
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore keeps conversation sessions for the lifetime of the process.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.UserSession
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*domain.UserSession)}
}

func (s *SessionStore) Save(ctx context.Context, session *domain.UserSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = session.Clone()
	return nil
}

func (s *SessionStore) Get(ctx context.Context, userID string) (*domain.UserSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return session.Clone(), nil
}

func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *SessionStore) ListUserIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
