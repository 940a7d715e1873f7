package domain

import "github.com/google/uuid"

// DefaultCollection is the knowledge collection used when none is named.
const DefaultCollection = "manuals"

// KnowledgeRecord is one embedded chunk owned by the knowledge store.
type KnowledgeRecord struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Vector   []float32         `json:"vector,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewKnowledgeRecord builds a record with a fresh UUID.
func NewKnowledgeRecord(text string, vector []float32, metadata map[string]string) *KnowledgeRecord {
	return &KnowledgeRecord{
		ID:       uuid.NewString(),
		Text:     text,
		Vector:   vector,
		Metadata: metadata,
	}
}

// ScoredRecord is a query hit. Higher Score means closer.
type ScoredRecord struct {
	Record KnowledgeRecord `json:"record"`
	Score  float64         `json:"score"`
}

// KnowledgeBaseInfo summarizes a collection.
type KnowledgeBaseInfo struct {
	CollectionName string `json:"collection_name"`
	DocumentCount  int    `json:"document_count"`
}

// Retrieval is the output of a knowledge base lookup.
// Confidence is a lexical overlap heuristic in [0,1], not a probability.
type Retrieval struct {
	Passages   []ScoredRecord `json:"passages"`
	Confidence float64        `json:"confidence"`
}

// Texts returns the passage texts in rank order.
func (r *Retrieval) Texts() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.Passages))
	for i, p := range r.Passages {
		out[i] = p.Record.Text
	}
	return out
}

// Answer is what the composer hands back for one question.
type Answer struct {
	Text           string   `json:"text"`
	Confidence     float64  `json:"confidence"`
	Context        []string `json:"context"`
	RetrievedCount int      `json:"retrieved_count"`
}
