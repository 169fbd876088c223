package driven

import (
	"context"
	"io"

	"github.com/recall-labs/recall-cli/internal/core/domain"
)

// DocumentSource is a uniform abstraction over a place documents live:
// a local filesystem tree, a cloud drive folder.
type DocumentSource interface {
	// Type returns the source type identifier (e.g., "filesystem", "gdrive").
	Type() string

	// SourceID returns the configured source ID.
	SourceID() string

	// List enumerates the current documents in the source. Each ref
	// carries a revision fingerprint that is stable across process
	// restarts and changes if and only if content changed.
	// Transient connectivity loss maps to domain.ErrSourceUnavailable.
	List(ctx context.Context) ([]domain.DocumentRef, error)

	// Fetch opens the content of a previously listed document.
	// Returns domain.ErrNotFound if the document vanished between List
	// and Fetch; the sync coordinator treats that as a deletion signal.
	Fetch(ctx context.Context, ref domain.DocumentRef) (io.ReadCloser, error)

	// Watch reports source changes for schedule-free syncing. Sources
	// that cannot watch return domain.ErrUnsupportedFormat.
	// Each received value means "something changed, re-sync".
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close releases resources.
	Close() error
}
