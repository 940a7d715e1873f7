package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore persists conversations as one JSONB row per user.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SessionStore
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Save upserts the user's conversation
func (s *SessionStore) Save(ctx context.Context, session *domain.UserSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	query := `
		INSERT INTO conversations (user_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, session.UserID, data, session.CreatedAt, session.LastActivityAt)
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", session.UserID, err)
	}
	return nil
}

// Get retrieves a conversation by user ID
func (s *SessionStore) Get(ctx context.Context, userID string) (*domain.UserSession, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM conversations WHERE user_id = $1`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", userID, err)
	}
	return decodeSession(data)
}

// Delete removes a conversation
func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete conversation %s: %w", userID, err)
	}
	return nil
}

// ListUserIDs returns every user with a stored conversation
func (s *SessionStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM conversations ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func decodeSession(data []byte) (*domain.UserSession, error) {
	var session domain.UserSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	if session.History == nil {
		session.History = []domain.ConversationTurn{}
	}
	return &session, nil
}
