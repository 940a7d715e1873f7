package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

const (
	conversationPrefix = "wisebot:conversation:"
	conversationIndex  = "wisebot:conversations"
)

// SessionStore implements driven.SessionStore using Redis.
// Each session is a JSON value; a set indexes known user IDs.
type SessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSessionStore creates a Redis-backed SessionStore.
// A zero ttl keeps conversations until they are deleted.
func NewSessionStore(client redis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Save stores the session and refreshes its idle TTL.
func (s *SessionStore) Save(ctx context.Context, session *domain.UserSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, conversationPrefix+session.UserID, data, s.ttl)
		pipe.SAdd(ctx, conversationIndex, session.UserID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", session.UserID, err)
	}
	return nil
}

// Get retrieves a session by user ID.
func (s *SessionStore) Get(ctx context.Context, userID string) (*domain.UserSession, error) {
	data, err := s.client.Get(ctx, conversationPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", userID, err)
	}

	var session domain.UserSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal conversation %s: %w", userID, err)
	}
	if session.History == nil {
		session.History = []domain.ConversationTurn{}
	}
	return &session, nil
}

// Delete removes the session and its index entry.
func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, conversationPrefix+userID)
		pipe.SRem(ctx, conversationIndex, userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete conversation %s: %w", userID, err)
	}
	return nil
}

// ListUserIDs returns users whose session has not expired.
// Index entries left behind by expired sessions are pruned.
func (s *SessionStore) ListUserIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, conversationIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	pipe := s.client.Pipeline()
	checks := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, conversationPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("check conversations: %w", err)
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for i, id := range ids {
		if checks[i].Val() > 0 {
			live = append(live, id)
		} else {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		s.client.SRem(ctx, conversationIndex, stale...)
	}

	sort.Strings(live)
	return live, nil
}
