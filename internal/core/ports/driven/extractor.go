package driven

import (
	"context"

	"github.com/recall-labs/recall-cli/internal/core/domain"
)

// Extractor converts a fetched document's raw bytes into an ordered
// sequence of text segments with provenance. One extractor per format.
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Extract parses the raw content into segments in reading order.
	// Malformed input maps to domain.ErrExtraction.
	Extract(ctx context.Context, documentID string, content []byte) ([]domain.Segment, error)
}

// ExtractorRegistry dispatches extraction on MIME type.
// Adding a format means registering an extractor, not modifying callers.
type ExtractorRegistry interface {
	// Register adds an extractor for its supported MIME types.
	Register(e Extractor)

	// Extract selects the extractor for the MIME type and runs it.
	// Unknown MIME types map to domain.ErrUnsupportedFormat.
	Extract(ctx context.Context, documentID, mimeType string, content []byte) ([]domain.Segment, error)

	// Supported reports whether an extractor is registered for the MIME
	// type. Lets callers skip unsupported documents without fetching.
	Supported(mimeType string) bool
}

// CommandRunner executes an external command and returns its stdout.
// Extractors that shell out (PDF via pdftotext) depend on this so tests
// can substitute a double.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
