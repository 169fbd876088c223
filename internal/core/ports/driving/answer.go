package driving

import (
	"context"

	"github.com/recall-labs/recall-cli/internal/core/domain"
)

// AnswerService answers natural-language questions by retrieving
// relevant chunks and grounding a generation call in them.
type AnswerService interface {
	// Answer embeds the query, searches the index, assembles a grounded
	// prompt from the top results and invokes generation. When retrieval
	// returns nothing the answer is still generated but flagged
	// ungrounded. Distinguishes "no relevant content" (Ungrounded) from
	// generation failure (domain.ErrGenerationFailed).
	Answer(ctx context.Context, query string, opts AnswerOptions) (*domain.QueryResult, error)
}

// AnswerOptions configures a query.
type AnswerOptions struct {
	// TopK is the number of chunks to retrieve (default 5).
	TopK int

	// SourceIDs restricts retrieval to specific sources.
	SourceIDs []string
}
