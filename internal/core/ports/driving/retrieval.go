package driving

import (
	"context"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// RetrievalService finds passages relevant to a question
type RetrievalService interface {
	// Retrieve embeds the query and returns the k nearest passages with a
	// lexical confidence score. k <= 0 uses the configured default.
	Retrieve(ctx context.Context, query string, k int) (*domain.Retrieval, error)

	// KnowledgeBaseInfo reports the collection name and size
	KnowledgeBaseInfo(ctx context.Context) (*domain.KnowledgeBaseInfo, error)
}
