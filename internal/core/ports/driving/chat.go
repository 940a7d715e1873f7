package driving

import (
	"context"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// ChatService answers questions. Answer never returns an error: failures are
// folded into the answer text with zero confidence.
type ChatService interface {
	Answer(ctx context.Context, query, userID string) *domain.Answer
}
