package memory

import (
	"sort"
	"sync"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Ensure ConnectionStore implements driven.ConnectionStore
var _ driven.ConnectionStore = (*ConnectionStore)(nil)

// ConnectionStore maps user IDs to their single live connection.
type ConnectionStore struct {
	mu      sync.RWMutex
	records map[string]domain.ConnectionRecord
}

// NewConnectionStore creates an empty registry.
func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{records: make(map[string]domain.ConnectionRecord)}
}

func (s *ConnectionStore) Put(record domain.ConnectionRecord) *domain.ConnectionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var previous *domain.ConnectionRecord
	if old, ok := s.records[record.UserID]; ok {
		previous = &old
	}
	s.records[record.UserID] = record
	return previous
}

func (s *ConnectionStore) Remove(userID, connectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[userID]; ok && existing.ConnectionID == connectionID {
		delete(s.records, userID)
		return true
	}
	return false
}

func (s *ConnectionStore) Increment(userID, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[userID]; ok && existing.ConnectionID == connectionID {
		existing.MessageCount++
		s.records[userID] = existing
	}
}

func (s *ConnectionStore) List() []domain.ConnectionRecord {
	s.mu.RLock()
	out := make([]domain.ConnectionRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

func (s *ConnectionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
