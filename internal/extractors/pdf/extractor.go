// Package pdf extracts PDF documents into page segments.
//
// Extraction shells out to pdftotext (poppler-utils), which emits one
// form feed between pages. Each page becomes one segment with the
// 1-based page number as provenance, so citations carry the page.
package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Ensure execRunner implements the interface.
var _ driven.CommandRunner = (*execRunner)(nil)

// Extractor handles PDF documents.
type Extractor struct {
	runner driven.CommandRunner
}

// New creates a new PDF extractor using the system pdftotext binary.
func New() *Extractor {
	return &Extractor{runner: &execRunner{}}
}

// NewWithRunner creates a PDF extractor with a custom command runner.
// Used by tests to substitute a double for pdftotext.
func NewWithRunner(runner driven.CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Extract writes the content to a temporary file, runs pdftotext and
// splits the output on form feeds into page segments.
func (e *Extractor) Extract(
	ctx context.Context, documentID string, content []byte,
) ([]domain.Segment, error) {
	tmpDir, err := os.MkdirTemp("", "recall-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpFile := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(tmpFile, content, 0600); err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	// "-" sends the text to stdout; pages are separated by \f.
	output, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", tmpFile, "-")
	if err != nil {
		return nil, fmt.Errorf("%w: pdftotext: %w", domain.ErrExtraction, err)
	}

	return pagesToSegments(documentID, string(output)), nil
}

// pagesToSegments splits pdftotext output into page segments.
// Empty pages keep their page number so citations stay accurate.
func pagesToSegments(documentID, text string) []domain.Segment {
	pages := strings.Split(text, "\f")

	var segments []domain.Segment
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			DocumentID: documentID,
			OrderIndex: len(segments),
			Text:       page,
			Provenance: domain.Provenance{
				Kind:  domain.ProvenancePage,
				Index: i + 1,
			},
		})
	}
	return segments
}

// execRunner runs commands with os/exec.
type execRunner struct{}

// Run executes the command and returns its stdout.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}
