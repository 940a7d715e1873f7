package driven

import (
	"github.com/jithsungh/wisebot/internal/core/domain"
)

// ConnectionStore tracks live chat connections, at most one per user.
type ConnectionStore interface {
	// Put registers the record as the user's live connection and returns the
	// record it replaced, if any.
	Put(record domain.ConnectionRecord) (previous *domain.ConnectionRecord)

	// Remove deletes the user's record only if it still belongs to connectionID.
	Remove(userID, connectionID string) bool

	// Increment bumps the message counter if the record belongs to connectionID.
	Increment(userID, connectionID string)

	// List returns a snapshot of all records sorted by connection time
	List() []domain.ConnectionRecord

	// Count returns the number of live connections
	Count() int
}
