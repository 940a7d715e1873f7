package driving

import (
	"context"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// Close codes sent to chat clients (RFC 6455).
const (
	CloseNormal        = 1000
	CloseInternalError = 1011
)

// Channel is one bidirectional chat connection as seen by the session manager.
type Channel interface {
	// Receive blocks for the next inbound payload. It returns an error once the
	// connection is closed.
	Receive(ctx context.Context) ([]byte, error)

	// Send queues a frame for delivery. It fails once the connection is closed.
	Send(ctx context.Context, frame *domain.Frame) error

	// Close closes the connection with a close code and reason. Idempotent.
	Close(code int, reason string) error
}

// SessionManager runs chat connections against the shared chat engine.
type SessionManager interface {
	// Serve drives one connection until it closes
	Serve(ctx context.Context, userID string, ch Channel) error

	// ActiveUsers returns the live connection records
	ActiveUsers() []domain.ConnectionRecord

	// Status summarizes the chat subsystem
	Status(ctx context.Context) *domain.ChatStatus
}
