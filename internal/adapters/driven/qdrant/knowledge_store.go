package qdrant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

const (
	payloadText = "text"
	payloadSeq  = "seq"
	metaPrefix  = "meta."
)

// Config holds Qdrant connection settings.
type Config struct {
	Host   string
	Port   int // gRPC port, default 6334
	APIKey string
	UseTLS bool
}

// KnowledgeStore implements driven.KnowledgeStore on Qdrant.
// Each knowledge collection maps to one Qdrant collection with cosine distance.
type KnowledgeStore struct {
	client *qdrant.Client
	seq    atomic.Int64
}

// NewKnowledgeStore connects to Qdrant.
func NewKnowledgeStore(cfg Config) (*KnowledgeStore, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &KnowledgeStore{client: client}
	s.seq.Store(time.Now().UnixNano())
	return s, nil
}

// Upsert writes all records in one waited request, creating the collection
// from the first record's dimension when needed.
func (s *KnowledgeStore) Upsert(ctx context.Context, collection string, records []*domain.KnowledgeRecord) error {
	if len(records) == 0 {
		return nil
	}

	dims, err := s.dimensions(ctx, collection)
	if err != nil {
		return err
	}
	want := dims
	if want == 0 {
		want = len(records[0].Vector)
	}
	for _, r := range records {
		if len(r.Vector) == 0 || len(r.Vector) != want {
			return fmt.Errorf("%w: record %s has %d, expected %d", domain.ErrDimensionMismatch, r.ID, len(r.Vector), want)
		}
	}

	if dims == 0 {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(want),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection %s: %w", collection, err)
		}
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = buildPoint(r, s.seq.Add(1))
	}

	wait := true
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", collection, err)
	}
	return nil
}

// DeleteAll drops the collection; the next Upsert recreates it.
func (s *KnowledgeStore) DeleteAll(ctx context.Context, collection string) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", collection, err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("delete collection %s: %w", collection, err)
	}
	return nil
}

func (s *KnowledgeStore) Count(ctx context.Context, collection string) (int, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("check collection %s: %w", collection, err)
	}
	if !exists {
		return 0, nil
	}

	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return int(n), nil
}

func (s *KnowledgeStore) Query(ctx context.Context, collection string, vector []float32, k int) ([]domain.ScoredRecord, error) {
	if k <= 0 {
		return []domain.ScoredRecord{}, nil
	}

	dims, err := s.dimensions(ctx, collection)
	if err != nil {
		return nil, err
	}
	if dims == 0 {
		return []domain.ScoredRecord{}, nil
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("%w: query has %d, collection has %d", domain.ErrDimensionMismatch, len(vector), dims)
	}

	limit := uint64(k)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	return rankPoints(points), nil
}

func (s *KnowledgeStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close releases the gRPC connection.
func (s *KnowledgeStore) Close() error {
	return s.client.Close()
}

// dimensions returns the collection's vector size, or 0 if it does not exist.
func (s *KnowledgeStore) dimensions(ctx context.Context, collection string) (int, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("check collection %s: %w", collection, err)
	}
	if !exists {
		return 0, nil
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("collection info %s: %w", collection, err)
	}
	return int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()), nil
}

func buildPoint(r *domain.KnowledgeRecord, seq int64) *qdrant.PointStruct {
	payload := map[string]any{
		payloadText: r.Text,
		payloadSeq:  seq,
	}
	for k, v := range r.Metadata {
		payload[metaPrefix+k] = v
	}
	return &qdrant.PointStruct{
		Id:      qdrant.NewID(r.ID),
		Vectors: qdrant.NewVectors(r.Vector...),
		Payload: qdrant.NewValueMap(payload),
	}
}

// rankPoints converts results and re-sorts them so equal scores keep insertion order.
func rankPoints(points []*qdrant.ScoredPoint) []domain.ScoredRecord {
	type ranked struct {
		rec domain.ScoredRecord
		seq int64
	}

	out := make([]ranked, 0, len(points))
	for _, p := range points {
		rec := domain.KnowledgeRecord{Metadata: map[string]string{}}
		if p.GetId() != nil {
			rec.ID = p.GetId().GetUuid()
		}

		var seq int64
		for k, v := range p.GetPayload() {
			switch {
			case k == payloadText:
				rec.Text = v.GetStringValue()
			case k == payloadSeq:
				seq = v.GetIntegerValue()
			case strings.HasPrefix(k, metaPrefix):
				rec.Metadata[strings.TrimPrefix(k, metaPrefix)] = v.GetStringValue()
			}
		}
		out = append(out, ranked{rec: domain.ScoredRecord{Record: rec, Score: float64(p.GetScore())}, seq: seq})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].rec.Score != out[j].rec.Score {
			return out[i].rec.Score > out[j].rec.Score
		}
		return out[i].seq < out[j].seq
	})

	results := make([]domain.ScoredRecord, len(out))
	for i, r := range out {
		results[i] = r.rec
	}
	return results
}
