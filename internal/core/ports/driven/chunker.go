package driven

import (
	"github.com/recall-labs/recall-cli/internal/core/domain"
)

// Chunker splits segments into overlapping token-bounded chunks,
// preserving provenance and order.
//
// Determinism requirement: identical input segments always yield
// identical chunk boundaries and IDs. No randomness, no wall clock.
type Chunker interface {
	// Chunk greedily accumulates segment text up to maxTokens per chunk,
	// carrying overlapTokens of trailing context into the next chunk.
	// A single segment longer than maxTokens is split at token
	// boundaries, never truncated.
	Chunk(documentID, revision string, segments []domain.Segment, maxTokens, overlapTokens int) ([]domain.Chunk, error)
}
