package extractors

import (
	"context"
	"fmt"
	"sync"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches extraction on MIME type.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]driven.Extractor),
	}
}

// Register adds an extractor for all of its supported MIME types.
// A later registration for the same MIME type wins.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mt := range e.SupportedMIMETypes() {
		r.extractors[mt] = e
	}
}

// Extract selects the extractor for the MIME type and runs it.
func (r *Registry) Extract(
	ctx context.Context, documentID, mimeType string, content []byte,
) ([]domain.Segment, error) {
	r.mu.RLock()
	e, ok := r.extractors[mimeType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, mimeType)
	}
	return e.Extract(ctx, documentID, content)
}

// Supported returns true if the MIME type has a registered extractor.
// The sync coordinator uses this to count unsupported documents as
// skipped without fetching their content.
func (r *Registry) Supported(mimeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extractors[mimeType]
	return ok
}
