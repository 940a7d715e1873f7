package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Ensure JobStore implements driven.JobStore
var _ driven.JobStore = (*JobStore)(nil)

// JobStore keeps ingestion jobs in memory.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.ProcessingJob
}

// NewJobStore creates an empty store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*domain.ProcessingJob)}
}

func (s *JobStore) Save(ctx context.Context, job *domain.ProcessingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *job
	s.jobs[job.ID] = &c
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *job
	return &c, nil
}

func (s *JobStore) List(ctx context.Context, limit int) ([]*domain.ProcessingJob, error) {
	s.mu.RLock()
	out := make([]*domain.ProcessingJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		c := *job
		out = append(out, &c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
