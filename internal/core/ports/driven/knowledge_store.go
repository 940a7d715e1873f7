package driven

import (
	"context"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// KnowledgeStore persists embedded chunks grouped into named collections.
// Implementations: in-memory, PostgreSQL + pgvector, Qdrant.
type KnowledgeStore interface {
	// Upsert writes all records or none of them.
	// Vectors whose length differs from the collection's fail with domain.ErrDimensionMismatch.
	Upsert(ctx context.Context, collection string, records []*domain.KnowledgeRecord) error

	// DeleteAll removes every record in the collection
	DeleteAll(ctx context.Context, collection string) error

	// Count returns the number of records in the collection
	Count(ctx context.Context, collection string) (int, error)

	// Query returns up to k records nearest to vector, closest first.
	// Equal scores keep insertion order. An empty collection yields no records.
	Query(ctx context.Context, collection string, vector []float32, k int) ([]domain.ScoredRecord, error)

	// Ping checks if the store backend is healthy
	Ping(ctx context.Context) error
}

// KnowledgeReplacer is implemented by stores that can swap a collection's
// contents in one step. When Replace fails the previous records remain.
// Stores without it get DeleteAll followed by Upsert.
type KnowledgeReplacer interface {
	Replace(ctx context.Context, collection string, records []*domain.KnowledgeRecord) error
}
