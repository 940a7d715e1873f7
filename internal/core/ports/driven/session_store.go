package driven

import (
	"context"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// SessionStore persists conversation sessions (memory or Redis).
// The memory manager serializes access per user; stores need no locking of their own beyond safety.
type SessionStore interface {
	// Save stores a session, replacing any previous copy
	Save(ctx context.Context, session *domain.UserSession) error

	// Get retrieves a session by user ID.
	// Returns domain.ErrNotFound when the user has no session.
	Get(ctx context.Context, userID string) (*domain.UserSession, error)

	// Delete removes a session
	Delete(ctx context.Context, userID string) error

	// ListUserIDs returns all users with a stored session
	ListUserIDs(ctx context.Context) ([]string, error)
}
