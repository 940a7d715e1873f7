package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
)

func passages(texts ...string) []domain.ScoredRecord {
	out := make([]domain.ScoredRecord, len(texts))
	for i, text := range texts {
		out[i] = domain.ScoredRecord{Record: domain.KnowledgeRecord{ID: fmt.Sprint(i), Text: text}}
	}
	return out
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		passages []domain.ScoredRecord
		want     float64
	}{
		{"no passages", "reset the router", nil, 0},
		{"empty query", "   ", passages("anything"), 0},
		{"all words present", "reset router", passages("How to reset", "the router lights"), 1},
		{"half present", "reset modem", passages("reset the router"), 0.5},
		{"none present", "warranty period", passages("reset the router"), 0},
		{"case insensitive", "RESET Router", passages("reset the router"), 1},
		{"duplicate query words", "reset reset modem", passages("reset"), 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.query, tt.passages)
			if got != tt.want {
				t.Errorf("Confidence(%q) = %v, want %v", tt.query, got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("confidence %v out of range", got)
			}
		})
	}
}

func TestRetrievalService_EmptyCollection(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.retrieval.Retrieve(context.Background(), "how do I reset", 0)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(result.Passages) != 0 {
		t.Errorf("expected no passages, got %d", len(result.Passages))
	}
	if result.Confidence != 0 {
		t.Errorf("expected zero confidence, got %v", result.Confidence)
	}
}

func TestRetrievalService_RespectsK(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		text := fmt.Sprintf("Document number %d about the router today", i)
		if _, err := env.ingestion.Ingest(ctx, driving.IngestRequest{Text: text}); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	result, err := env.retrieval.Retrieve(ctx, "router", 0)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(result.Passages) != DefaultRetrievalK {
		t.Errorf("expected %d passages, got %d", DefaultRetrievalK, len(result.Passages))
	}

	result, err = env.retrieval.Retrieve(ctx, "router", 2)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(result.Passages) != 2 {
		t.Errorf("expected 2 passages, got %d", len(result.Passages))
	}
	if result.Confidence != 1 {
		t.Errorf("expected confidence 1, got %v", result.Confidence)
	}
	for i := 1; i < len(result.Passages); i++ {
		if result.Passages[i].Score > result.Passages[i-1].Score {
			t.Errorf("passages not ranked: %v after %v", result.Passages[i].Score, result.Passages[i-1].Score)
		}
	}
}

func TestRetrievalService_KnowledgeBaseInfo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	info, err := env.retrieval.KnowledgeBaseInfo(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.CollectionName != domain.DefaultCollection || info.DocumentCount != 0 {
		t.Errorf("unexpected info %+v", info)
	}

	if _, err := env.ingestion.Ingest(ctx, driving.IngestRequest{Text: manualText}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	info, _ = env.retrieval.KnowledgeBaseInfo(ctx)
	if info.DocumentCount != 1 {
		t.Errorf("expected 1 document, got %d", info.DocumentCount)
	}
}
