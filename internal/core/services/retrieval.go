package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
	"github.com/jithsungh/wisebot/internal/runtime"
)

// Ensure RetrievalService implements driving.RetrievalService
var _ driving.RetrievalService = (*RetrievalService)(nil)

// DefaultRetrievalK is the number of passages fetched per question
const DefaultRetrievalK = 5

// RetrievalConfig holds retrieval settings
type RetrievalConfig struct {
	Services        *runtime.Services
	Store           driven.KnowledgeStore
	Collection      string
	K               int
	UpstreamTimeout time.Duration
	Logger          *slog.Logger
}

// RetrievalService embeds a question and searches the knowledge store.
type RetrievalService struct {
	services   *runtime.Services
	store      driven.KnowledgeStore
	collection string
	k          int
	timeout    time.Duration
	logger     *slog.Logger
}

// NewRetrievalService creates a new retrieval service
func NewRetrievalService(cfg RetrievalConfig) *RetrievalService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collection := cfg.Collection
	if collection == "" {
		collection = domain.DefaultCollection
	}
	k := cfg.K
	if k <= 0 {
		k = DefaultRetrievalK
	}
	timeout := cfg.UpstreamTimeout
	if timeout == 0 {
		timeout = DefaultUpstreamTimeout
	}
	return &RetrievalService{
		services:   cfg.Services,
		store:      cfg.Store,
		collection: collection,
		k:          k,
		timeout:    timeout,
		logger:     logger.With("component", "retrieval"),
	}
}

// Retrieve returns the k nearest passages and their lexical confidence.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, k int) (*domain.Retrieval, error) {
	if k <= 0 {
		k = s.k
	}

	embedder, err := s.services.Embedder()
	if err != nil {
		return nil, err
	}

	var vector []float32
	err = callUpstream(ctx, s.timeout, "embed query", func(ctx context.Context) error {
		var err error
		vector, err = embedder.EmbedOne(ctx, query)
		return err
	})
	if err != nil {
		return nil, classify(domain.ErrEmbeddingFailure, err)
	}

	var passages []domain.ScoredRecord
	err = callUpstream(ctx, s.timeout, "query store", func(ctx context.Context) error {
		var err error
		passages, err = s.store.Query(ctx, s.collection, vector, k)
		return err
	})
	if err != nil {
		return nil, classify(domain.ErrStoreFailure, err)
	}

	confidence := Confidence(query, passages)
	s.logger.Debug("retrieved passages", "k", k, "found", len(passages), "confidence", confidence)

	return &domain.Retrieval{Passages: passages, Confidence: confidence}, nil
}

// KnowledgeBaseInfo reports the collection name and record count.
func (s *RetrievalService) KnowledgeBaseInfo(ctx context.Context) (*domain.KnowledgeBaseInfo, error) {
	var n int
	err := callUpstream(ctx, s.timeout, "count records", func(ctx context.Context) error {
		var err error
		n, err = s.store.Count(ctx, s.collection)
		return err
	})
	if err != nil {
		return nil, classify(domain.ErrStoreFailure, err)
	}
	return &domain.KnowledgeBaseInfo{CollectionName: s.collection, DocumentCount: n}, nil
}

// Confidence is the share of distinct query words found anywhere in the
// passages, using lowercase whitespace tokens. It is 0 without words or
// passages and never exceeds 1.
func Confidence(query string, passages []domain.ScoredRecord) float64 {
	if len(passages) == 0 {
		return 0
	}

	qwords := wordSet(query)
	if len(qwords) == 0 {
		return 0
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Record.Text
	}
	cwords := wordSet(strings.Join(texts, " "))

	overlap := 0
	for w := range qwords {
		if _, ok := cwords[w]; ok {
			overlap++
		}
	}
	return min(float64(overlap)/float64(len(qwords)), 1.0)
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
