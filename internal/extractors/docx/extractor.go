// Package docx extracts Word documents (DOCX) into paragraph segments.
//
// DOCX files are ZIP archives; text lives in word/document.xml. The
// extractor reads runs per paragraph so each paragraph becomes one
// segment with its 1-based index as provenance.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// Extract parses the archive and returns one segment per non-empty
// paragraph, in document order.
func (e *Extractor) Extract(
	_ context.Context, documentID string, content []byte,
) ([]domain.Segment, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip archive: %w", domain.ErrExtraction, err)
	}

	paragraphs, err := extractParagraphs(reader)
	if err != nil {
		return nil, err
	}

	var segments []domain.Segment
	for i, text := range paragraphs {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			DocumentID: documentID,
			OrderIndex: len(segments),
			Text:       text,
			Provenance: domain.Provenance{
				Kind:  domain.ProvenanceParagraph,
				Index: i + 1,
			},
		})
	}

	return segments, nil
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// extractParagraphs reads word/document.xml and returns the paragraph
// texts in document order.
func extractParagraphs(reader *zip.Reader) ([]string, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open document.xml: %w", domain.ErrExtraction, err)
		}

		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read document.xml: %w", domain.ErrExtraction, err)
		}

		var doc documentXML
		if err := xml.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("%w: parse document.xml: %w", domain.ErrExtraction, err)
		}

		paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
		for _, para := range doc.Body.Paragraphs {
			var sb strings.Builder
			for _, r := range para.Runs {
				for _, t := range r.Text {
					sb.WriteString(t.Content)
				}
			}
			paragraphs = append(paragraphs, sb.String())
		}
		return paragraphs, nil
	}

	return nil, fmt.Errorf("%w: word/document.xml missing", domain.ErrExtraction)
}
