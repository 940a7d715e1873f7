package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
	"github.com/jithsungh/wisebot/internal/runtime"
)

// Ensure IngestionService implements driving.IngestionService
var _ driving.IngestionService = (*IngestionService)(nil)

const (
	defaultLockTTL   = 5 * time.Minute
	lockRetryDelay   = 100 * time.Millisecond
	defaultJobListed = 50
)

// IngestionConfig holds the collaborators of the ingestion pipeline.
type IngestionConfig struct {
	Services   *runtime.Services
	Store      driven.KnowledgeStore
	Jobs       driven.JobStore
	Queue      driven.JobQueue
	Extractors driven.ExtractorRegistry
	Normaliser driven.TextNormaliser
	Pipeline   driven.PostProcessorPipeline

	// Lock serializes replace ingestion across instances. Optional.
	Lock driven.DistributedLock

	Collection      string
	UpstreamTimeout time.Duration
	LockTTL         time.Duration
	Logger          *slog.Logger
}

// IngestionService runs normalize -> chunk -> embed -> upsert and tracks
// asynchronous jobs.
type IngestionService struct {
	services   *runtime.Services
	store      driven.KnowledgeStore
	jobs       driven.JobStore
	queue      driven.JobQueue
	extractors driven.ExtractorRegistry
	normaliser driven.TextNormaliser
	pipeline   driven.PostProcessorPipeline
	lock       driven.DistributedLock

	collection string
	timeout    time.Duration
	lockTTL    time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	replaces map[string]*sync.Mutex
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(cfg IngestionConfig) *IngestionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collection := cfg.Collection
	if collection == "" {
		collection = domain.DefaultCollection
	}
	timeout := cfg.UpstreamTimeout
	if timeout == 0 {
		timeout = DefaultUpstreamTimeout
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	return &IngestionService{
		services:   cfg.Services,
		store:      cfg.Store,
		jobs:       cfg.Jobs,
		queue:      cfg.Queue,
		extractors: cfg.Extractors,
		normaliser: cfg.Normaliser,
		pipeline:   cfg.Pipeline,
		lock:       cfg.Lock,
		collection: collection,
		timeout:    timeout,
		lockTTL:    lockTTL,
		logger:     logger.With("component", "ingestion"),
		replaces:   make(map[string]*sync.Mutex),
	}
}

// Ingest runs the pipeline synchronously.
// Replace mode deletes the collection before the upsert; readers may briefly
// see an empty collection while that happens.
func (s *IngestionService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
	collection := req.Collection
	if collection == "" {
		collection = s.collection
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.IngestModeAppend
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: ingest mode %q", domain.ErrInvalidInput, mode)
	}

	start := time.Now()
	normalized := s.normaliser.Normalise(req.Text)
	if strings.TrimSpace(normalized) == "" {
		return nil, domain.ErrEmptyDocument
	}

	chunks := s.pipeline.Process(normalized)
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	embedder, err := s.services.Embedder()
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var vectors [][]float32
	err = callUpstream(ctx, s.timeout, "embed chunks", func(ctx context.Context) error {
		var err error
		vectors, err = embedder.EmbedMany(ctx, texts)
		return err
	})
	if err != nil {
		return nil, classify(domain.ErrEmbeddingFailure, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingFailure, len(vectors), len(chunks))
	}

	records := make([]*domain.KnowledgeRecord, len(chunks))
	for i, c := range chunks {
		meta := c.Metadata
		if req.Source != "" {
			meta = withSource(meta, req.Source)
		}
		records[i] = domain.NewKnowledgeRecord(c.Text, vectors[i], meta)
	}

	if mode == domain.IngestModeReplace {
		err = s.replace(ctx, collection, records)
	} else {
		err = s.upsert(ctx, collection, records)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("ingested document",
		"collection", collection,
		"mode", mode,
		"source", req.Source,
		"chunks", len(records),
		"duration", time.Since(start),
	)

	return &domain.IngestResult{
		ChunksCreated: len(records),
		TextLength:    utf8.RuneCountInString(req.Text),
	}, nil
}

func (s *IngestionService) upsert(ctx context.Context, collection string, records []*domain.KnowledgeRecord) error {
	err := callUpstream(ctx, s.timeout, "upsert records", func(ctx context.Context) error {
		return s.store.Upsert(ctx, collection, records)
	})
	return classify(domain.ErrStoreFailure, err)
}

// replace holds the collection lock for the delete+insert pair, using the
// store's atomic Replace when it has one.
func (s *IngestionService) replace(ctx context.Context, collection string, records []*domain.KnowledgeRecord) error {
	unlock, err := s.lockCollection(ctx, collection)
	if err != nil {
		return err
	}
	defer unlock()

	if r, ok := s.store.(driven.KnowledgeReplacer); ok {
		err := callUpstream(ctx, s.timeout, "replace collection", func(ctx context.Context) error {
			return r.Replace(ctx, collection, records)
		})
		return classify(domain.ErrStoreFailure, err)
	}

	// Without an atomic replace, a failed upsert leaves the collection empty.
	err = callUpstream(ctx, s.timeout, "delete collection", func(ctx context.Context) error {
		return s.store.DeleteAll(ctx, collection)
	})
	if err != nil {
		return classify(domain.ErrStoreFailure, err)
	}
	return s.upsert(ctx, collection, records)
}

// lockCollection takes the in-process mutex, then the distributed lock.
func (s *IngestionService) lockCollection(ctx context.Context, collection string) (func(), error) {
	s.mu.Lock()
	mu, ok := s.replaces[collection]
	if !ok {
		mu = &sync.Mutex{}
		s.replaces[collection] = mu
	}
	s.mu.Unlock()

	mu.Lock()
	if s.lock == nil {
		return mu.Unlock, nil
	}

	name := "ingest:" + collection
	for {
		acquired, err := s.lock.Acquire(ctx, name, s.lockTTL)
		if err != nil {
			mu.Unlock()
			return nil, fmt.Errorf("%w: acquire %s: %w", domain.ErrStoreFailure, name, err)
		}
		if acquired {
			break
		}
		select {
		case <-ctx.Done():
			mu.Unlock()
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	return func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), name); err != nil {
			s.logger.Warn("failed to release ingest lock", "lock", name, "error", err)
		}
		mu.Unlock()
	}, nil
}

// Submit records a job and queues it for a worker.
func (s *IngestionService) Submit(ctx context.Context, req driving.SubmitRequest) (*domain.ProcessingJob, error) {
	if (req.Path == "") == (req.Text == "") {
		return nil, fmt.Errorf("%w: exactly one of path or text is required", domain.ErrInvalidInput)
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.IngestModeAppend
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: ingest mode %q", domain.ErrInvalidInput, mode)
	}
	collection := req.Collection
	if collection == "" {
		collection = s.collection
	}

	job := domain.NewProcessingJob(req.Filename, collection, mode)
	job.Path = req.Path
	job.Text = req.Text
	job.TempPath = req.TempPath

	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		s.fail(ctx, job, fmt.Errorf("enqueue: %w", err))
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info("ingestion job queued", "job_id", job.ID, "filename", job.Filename, "mode", mode)
	return redactJob(job), nil
}

// ProcessJob moves a job through processing to a terminal state.
// Jobs already finished are left untouched.
func (s *IngestionService) ProcessJob(ctx context.Context, jobID string) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status.IsTerminal() {
		s.logger.Info("skipping finished job", "job_id", jobID, "status", job.Status)
		return nil
	}

	if err := job.MarkProcessing(); err != nil {
		return err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("save job: %w", err)
	}

	text := job.Text
	if job.Path != "" {
		text, err = s.extractors.Extract(ctx, job.Path)
		if err != nil {
			s.fail(ctx, job, err)
			return err
		}
	}

	result, err := s.Ingest(ctx, driving.IngestRequest{
		Text:       text,
		Collection: job.Collection,
		Source:     job.Filename,
		Mode:       job.Mode,
	})
	if err != nil {
		s.fail(ctx, job, err)
		return err
	}

	if err := job.MarkCompleted(result.ChunksCreated, result.TextLength); err != nil {
		return err
	}
	job.Text = ""
	if err := s.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("save job: %w", err)
	}

	s.logger.Info("ingestion job completed", "job_id", job.ID, "chunks", result.ChunksCreated, "duration", job.Duration())
	return nil
}

// fail marks the job as errored and removes its temp artifact.
func (s *IngestionService) fail(ctx context.Context, job *domain.ProcessingJob, cause error) {
	if job.TempPath != "" {
		if err := os.Remove(job.TempPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove temp file", "job_id", job.ID, "path", job.TempPath, "error", err)
		}
	}
	if err := job.MarkFailed(cause.Error()); err != nil {
		s.logger.Warn("job already finished", "job_id", job.ID, "error", err)
		return
	}
	job.Text = ""
	if err := s.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
		s.logger.Error("failed to save failed job", "job_id", job.ID, "error", err)
	}
	s.logger.Warn("ingestion job failed", "job_id", job.ID, "error", cause)
}

func (s *IngestionService) Status(ctx context.Context, jobID string) (*domain.ProcessingJob, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return redactJob(job), nil
}

func (s *IngestionService) ListJobs(ctx context.Context, limit int) ([]*domain.ProcessingJob, error) {
	if limit <= 0 {
		limit = defaultJobListed
	}
	jobs, err := s.jobs.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i, j := range jobs {
		jobs[i] = redactJob(j)
	}
	return jobs, nil
}

// redactJob drops the payload and local paths from a job shown to callers.
func redactJob(job *domain.ProcessingJob) *domain.ProcessingJob {
	out := *job
	out.Text = ""
	out.Path = ""
	out.TempPath = ""
	return &out
}

func withSource(meta map[string]string, source string) map[string]string {
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out["source"] = source
	return out
}
