package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrSourceUnavailable indicates a document source cannot be reached.
	// Transient: the sync run aborts and may be retried.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNotFound indicates a requested entity does not exist.
	// During sync, a fetch returning ErrNotFound is treated as a deletion
	// signal for that document, not a fatal error.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates no extractor handles the MIME type.
	// Per-document: the document is skipped and reported.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtraction indicates malformed or corrupt document content.
	// Per-document: the document is skipped and reported.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbeddingFailed indicates the embedding service exhausted retries.
	// Affected documents stay unindexed and are retried on the next run.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrStoreUnavailable indicates a transient index store failure.
	ErrStoreUnavailable = errors.New("index store unavailable")

	// ErrStoreCorrupted indicates the index store is unreadable and must
	// be reinitialised. Never silently recovered.
	ErrStoreCorrupted = errors.New("index store corrupted")

	// ErrGenerationFailed indicates the generation service exhausted
	// retries. Surfaced to the caller; never replaced with an ungrounded
	// or cached answer.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrCredentialMissing indicates no credential is configured for a
	// provider. Fatal for the operation requiring it.
	ErrCredentialMissing = errors.New("credential missing")

	// ErrSyncInProgress indicates a sync run is already active.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrChunkCollision indicates a chunk ID is already held by a
	// different document. The affected document fails rather than
	// silently overwriting.
	ErrChunkCollision = errors.New("chunk id collision")

	// ErrModelMismatch indicates the stored vectors were produced by a
	// different embedding model or dimensionality than the current one.
	// Forces a full re-index.
	ErrModelMismatch = errors.New("embedding model mismatch")
)
