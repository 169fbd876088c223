package driven

import (
	"context"

	"github.com/recall-labs/recall-cli/internal/core/domain"
)

// IndexStore is the persistent collection of indexed vectors, keyed by
// document ID. Collections are keyed by a user-chosen corpus name.
//
// Concurrency contract: Upsert and Delete for a single document ID are
// mutually exclusive across concurrent sync runs. Search is lock-free
// relative to writes and may observe either the pre- or post-upsert
// state of a document mid-transition (read committed), but never a mix
// of revisions for one document.
type IndexStore interface {
	// Upsert atomically replaces all entries for documentID with the new
	// set. A reader never observes a mix of old and new revisions, and
	// never observes zero entries mid-update.
	// Returns domain.ErrChunkCollision if a chunk ID is already held by
	// a different document.
	Upsert(ctx context.Context, documentID, revision string, vectors []domain.IndexedVector) error

	// Delete removes all entries for documentID. Idempotent: deleting an
	// absent ID is a no-op.
	Delete(ctx context.Context, documentID string) error

	// Search returns the topK nearest vectors by cosine similarity in
	// descending score order. Ties are broken by ascending chunk ID so
	// identical inputs give deterministic results. Filters restrict
	// results to the given source IDs; empty means no filter.
	Search(ctx context.Context, query []float32, topK int, filters SearchFilters) ([]SearchHit, error)

	// ListDocumentRevisions returns the document ID to revision map used
	// by the sync coordinator's diff.
	ListDocumentRevisions(ctx context.Context) (map[string]string, error)

	// Metadata returns the stored corpus metadata (embedding model tag,
	// dimensionality). Zero-valued when the corpus is new.
	Metadata(ctx context.Context) (CorpusMetadata, error)

	// SetMetadata records the corpus metadata.
	SetMetadata(ctx context.Context, meta CorpusMetadata) error

	// Reset drops every indexed vector and document. Used when a model
	// change forces a full re-index.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// SearchFilters restricts search results.
type SearchFilters struct {
	// SourceIDs limits results to documents from these sources.
	SourceIDs []string
}

// SearchHit is one similarity search result.
type SearchHit struct {
	// Vector is the matched record.
	Vector domain.IndexedVector

	// Score is the cosine similarity (higher is closer).
	Score float64
}

// CorpusMetadata identifies the embedding space of a corpus.
// A mismatch with the current embedding service forces a full re-index
// rather than silently mixing incompatible vectors.
type CorpusMetadata struct {
	// EmbeddingModel is the model tag the vectors were produced with.
	EmbeddingModel string

	// Dimensions is the vector size.
	Dimensions int
}
