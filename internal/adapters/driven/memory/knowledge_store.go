// Package memory provides in-process implementations of the driven ports.
// They back single-instance deployments and tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Ensure KnowledgeStore implements driven.KnowledgeStore
var (
	_ driven.KnowledgeStore    = (*KnowledgeStore)(nil)
	_ driven.KnowledgeReplacer = (*KnowledgeStore)(nil)
)

// KnowledgeStore keeps records in memory and answers queries by brute-force
// cosine similarity. Writes build a new slice and swap it in, so readers never
// see a half-applied batch.
type KnowledgeStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dims    int
	records []*domain.KnowledgeRecord // insertion order
	index   map[string]int
}

// NewKnowledgeStore creates an empty store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		collections: make(map[string]*collection),
	}
}

// Upsert writes all records or none.
func (s *KnowledgeStore) Upsert(ctx context.Context, name string, records []*domain.KnowledgeRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.collections[name]
	dims := 0
	if current != nil {
		dims = current.dims
	}
	dims, err := validateRecords(name, records, dims)
	if err != nil {
		return err
	}

	next := &collection{dims: dims, index: make(map[string]int)}
	if current != nil {
		next.records = make([]*domain.KnowledgeRecord, len(current.records), len(current.records)+len(records))
		copy(next.records, current.records)
		for id, i := range current.index {
			next.index[id] = i
		}
	}
	for _, r := range records {
		stored := cloneRecord(r)
		if i, ok := next.index[r.ID]; ok {
			next.records[i] = stored
			continue
		}
		next.index[r.ID] = len(next.records)
		next.records = append(next.records, stored)
	}

	s.collections[name] = next
	return nil
}

// Replace swaps the collection for records. The new batch sets the
// collection's dimension; an invalid batch leaves the old records in place.
func (s *KnowledgeStore) Replace(ctx context.Context, name string, records []*domain.KnowledgeRecord) error {
	dims, err := validateRecords(name, records, 0)
	if err != nil {
		return err
	}

	next := &collection{
		dims:    dims,
		records: make([]*domain.KnowledgeRecord, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for _, r := range records {
		stored := cloneRecord(r)
		if i, ok := next.index[r.ID]; ok {
			next.records[i] = stored
			continue
		}
		next.index[r.ID] = len(next.records)
		next.records = append(next.records, stored)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(next.records) == 0 {
		delete(s.collections, name)
		return nil
	}
	s.collections[name] = next
	return nil
}

// DeleteAll drops the collection.
func (s *KnowledgeStore) DeleteAll(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections, name)
	return nil
}

// Count returns the number of records.
func (s *KnowledgeStore) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c := s.collections[name]; c != nil {
		return len(c.records), nil
	}
	return 0, nil
}

// Query ranks records by cosine similarity; ties keep insertion order.
func (s *KnowledgeStore) Query(ctx context.Context, name string, vector []float32, k int) ([]domain.ScoredRecord, error) {
	s.mu.RLock()
	c := s.collections[name]
	s.mu.RUnlock()

	if c == nil || len(c.records) == 0 || k <= 0 {
		return []domain.ScoredRecord{}, nil
	}
	if len(vector) != c.dims {
		return nil, fmt.Errorf("query has %d dims, collection %s has %d: %w",
			len(vector), name, c.dims, domain.ErrDimensionMismatch)
	}

	scored := make([]domain.ScoredRecord, len(c.records))
	for i, r := range c.records {
		scored[i] = domain.ScoredRecord{
			Record: *cloneRecord(r),
			Score:  CosineSimilarity(vector, r.Vector),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Ping always succeeds.
func (s *KnowledgeStore) Ping(ctx context.Context) error {
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either is a zero vector.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// validateRecords checks ids and vector lengths against dims, or against the
// first record when dims is 0, and returns the dimension in use.
func validateRecords(name string, records []*domain.KnowledgeRecord, dims int) (int, error) {
	for i, r := range records {
		if r == nil || r.ID == "" {
			return 0, fmt.Errorf("record %d has no id: %w", i, domain.ErrInvalidInput)
		}
		if len(r.Vector) == 0 {
			return 0, fmt.Errorf("record %s has no vector: %w", r.ID, domain.ErrInvalidInput)
		}
		if dims == 0 {
			dims = len(r.Vector)
		}
		if len(r.Vector) != dims {
			return 0, fmt.Errorf("record %s has %d dims, collection %s has %d: %w",
				r.ID, len(r.Vector), name, dims, domain.ErrDimensionMismatch)
		}
	}
	return dims, nil
}

func cloneRecord(r *domain.KnowledgeRecord) *domain.KnowledgeRecord {
	c := *r
	c.Vector = append([]float32(nil), r.Vector...)
	if r.Metadata != nil {
		c.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
