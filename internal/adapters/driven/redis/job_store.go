package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobStore = (*JobStore)(nil)

const (
	jobPrefix = "wisebot:job:"
	jobIndex  = "wisebot:jobs"

	// jobTTL keeps finished job status around for polling clients
	jobTTL = 24 * time.Hour
)

// JobStore keeps ingestion job status in Redis so every instance sees the
// same status for a job ID.
type JobStore struct {
	client redis.UniversalClient
}

// NewJobStore creates a Redis-backed JobStore.
func NewJobStore(client redis.UniversalClient) *JobStore {
	return &JobStore{client: client}
}

func (s *JobStore) Save(ctx context.Context, job *domain.ProcessingJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, jobPrefix+job.ID, data, jobTTL)
		pipe.ZAdd(ctx, jobIndex, redis.Z{Score: float64(job.CreatedAt.UnixNano()), Member: job.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	data, err := s.client.Get(ctx, jobPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}

	var job domain.ProcessingJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// List returns the newest jobs. Expired entries are dropped from the index.
func (s *JobStore) List(ctx context.Context, limit int) ([]*domain.ProcessingJob, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, jobIndex, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs := make([]*domain.ProcessingJob, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			s.client.ZRem(ctx, jobIndex, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
