package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*LocalEmbedding)(nil)

// LocalEmbedding is an offline feature-hashing embedder.
// Words and adjacent word pairs are hashed into signed buckets and the
// result is L2-normalized, so texts sharing vocabulary score high on cosine.
type LocalEmbedding struct {
	dimensions int
}

// NewLocalEmbedding creates a local embedder; dimensions <= 0 uses 384.
func NewLocalEmbedding(dimensions int) *LocalEmbedding {
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDimensions
	}
	return &LocalEmbedding{dimensions: dimensions}
}

func (e *LocalEmbedding) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *LocalEmbedding) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

func (e *LocalEmbedding) embed(text string) []float32 {
	vec := make([]float32, e.dimensions)
	words := tokenize(text)

	for i, w := range words {
		e.add(vec, w, 1)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (e *LocalEmbedding) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (e *LocalEmbedding) Dimensions() int {
	return e.dimensions
}

func (e *LocalEmbedding) Model() string {
	return domain.DefaultLocalEmbeddingModel
}

func (e *LocalEmbedding) HealthCheck(ctx context.Context) error {
	return nil
}

func (e *LocalEmbedding) Close() error {
	return nil
}
