// Package plaintext extracts plain text and markdown documents into
// paragraph segments.
package plaintext

import (
	"context"
	"strings"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
	}
}

// Extract splits the content on blank lines into paragraph segments.
// Reading order is preserved; provenance is the 1-based paragraph index.
func (e *Extractor) Extract(
	_ context.Context, documentID string, content []byte,
) ([]domain.Segment, error) {
	if !isValidText(content) {
		return nil, domain.ErrExtraction
	}

	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	paragraphs := strings.Split(text, "\n\n")

	var segments []domain.Segment
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			DocumentID: documentID,
			OrderIndex: len(segments),
			Text:       para,
			Provenance: domain.Provenance{
				Kind:  domain.ProvenanceParagraph,
				Index: len(segments) + 1,
			},
		})
	}

	return segments, nil
}

// isValidText rejects content with NUL bytes, a cheap binary check.
func isValidText(content []byte) bool {
	for _, b := range content {
		if b == 0 {
			return false
		}
	}
	return true
}
