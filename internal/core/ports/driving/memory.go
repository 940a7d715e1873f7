package driving

import (
	"context"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// MemoryService owns per-user conversation history
type MemoryService interface {
	// GetOrCreate returns the user's session, creating it on first use.
	// Concurrent first calls for one user observe a single session.
	GetOrCreate(ctx context.Context, userID string) (*domain.UserSession, error)

	// Append records a question and its answer
	Append(ctx context.Context, userID, userText, assistantText string) error

	// History returns the user's turns, oldest first
	History(ctx context.Context, userID string) ([]domain.ConversationTurn, error)

	// Exchanges returns the history as flat user/assistant pairs
	Exchanges(ctx context.Context, userID string) ([]domain.Exchange, error)

	// Clear empties the history but keeps session metadata
	Clear(ctx context.Context, userID string) error

	// KnownUsers returns the number of users with a session
	KnownUsers(ctx context.Context) (int, error)
}
