package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.KnowledgeStore    = (*KnowledgeStore)(nil)
	_ driven.KnowledgeReplacer = (*KnowledgeStore)(nil)
)

const upsertRecord = `
	INSERT INTO knowledge_records (id, collection, text, metadata, embedding)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		text = EXCLUDED.text,
		metadata = EXCLUDED.metadata,
		embedding = EXCLUDED.embedding
`

// KnowledgeStore implements driven.KnowledgeStore on PostgreSQL with pgvector.
// Similarity is 1 - cosine distance; ties fall back to insertion sequence.
type KnowledgeStore struct {
	db *DB
}

// NewKnowledgeStore creates a pgvector-backed knowledge store.
func NewKnowledgeStore(db *DB) *KnowledgeStore {
	return &KnowledgeStore{db: db}
}

// Upsert writes every record in a single transaction.
func (s *KnowledgeStore) Upsert(ctx context.Context, collection string, records []*domain.KnowledgeRecord) error {
	if len(records) == 0 {
		return nil
	}

	dims, err := s.dimensions(ctx, collection)
	if err != nil {
		return err
	}
	if err := checkDimensions(records, dims); err != nil {
		return err
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		return insertRecords(ctx, tx, collection, records)
	})
}

// Replace deletes the collection and inserts records in one transaction,
// so a failed insert leaves the previous records visible.
func (s *KnowledgeStore) Replace(ctx context.Context, collection string, records []*domain.KnowledgeRecord) error {
	if err := checkDimensions(records, 0); err != nil {
		return err
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM knowledge_records WHERE collection = $1`, collection); err != nil {
			return fmt.Errorf("delete collection %s: %w", collection, err)
		}
		return insertRecords(ctx, tx, collection, records)
	})
}

func insertRecords(ctx context.Context, tx *sql.Tx, collection string, records []*domain.KnowledgeRecord) error {
	stmt, err := tx.PrepareContext(ctx, upsertRecord)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := encodeMetadata(r.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.ID, collection, r.Text, meta, pgvector.NewVector(r.Vector)); err != nil {
			return fmt.Errorf("upsert record %s: %w", r.ID, err)
		}
	}
	return nil
}

func (s *KnowledgeStore) DeleteAll(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_records WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("delete collection %s: %w", collection, err)
	}
	return nil
}

func (s *KnowledgeStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_records WHERE collection = $1`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", collection, err)
	}
	return n, nil
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

	query := `
		SELECT id, text, metadata, embedding, 1 - (embedding <=> $2) AS score
		FROM knowledge_records
		WHERE collection = $1
		ORDER BY embedding <=> $2, seq ASC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, collection, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", collection, err)
	}
	defer rows.Close()

	results := make([]domain.ScoredRecord, 0, k)
	for rows.Next() {
		var (
			rec   domain.KnowledgeRecord
			meta  []byte
			emb   pgvector.Vector
			score float64
		)
		if err := rows.Scan(&rec.ID, &rec.Text, &meta, &emb, &score); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if rec.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		rec.Vector = emb.Slice()
		results = append(results, domain.ScoredRecord{Record: rec, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return results, nil
}

func (s *KnowledgeStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// dimensions returns the vector length already used by the collection, or 0 when empty.
func (s *KnowledgeStore) dimensions(ctx context.Context, collection string) (int, error) {
	var dims int
	err := s.db.QueryRowContext(ctx,
		`SELECT vector_dims(embedding) FROM knowledge_records WHERE collection = $1 LIMIT 1`,
		collection,
	).Scan(&dims)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("collection dimensions: %w", err)
	}
	return dims, nil
}

// checkDimensions requires every record to share one length, matching dims when dims > 0.
func checkDimensions(records []*domain.KnowledgeRecord, dims int) error {
	for _, r := range records {
		if dims == 0 {
			dims = len(r.Vector)
		}
		if len(r.Vector) == 0 || len(r.Vector) != dims {
			return fmt.Errorf("%w: record %s has %d, expected %d", domain.ErrDimensionMismatch, r.ID, len(r.Vector), dims)
		}
	}
	return nil
}

func encodeMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}

func decodeMetadata(data []byte) (map[string]string, error) {
	m := map[string]string{}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}
