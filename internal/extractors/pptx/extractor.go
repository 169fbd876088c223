// Package pptx extracts slide decks (PPTX) into slide segments.
//
// PPTX files are ZIP archives with one XML file per slide under
// ppt/slides/. Each slide becomes one segment whose provenance is the
// 1-based slide number, so citations point at the right slide.
package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles PPTX slide decks.
type Extractor struct{}

// New creates a new PPTX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	}
}

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Extract parses the archive and returns one segment per non-empty
// slide, ordered by slide number.
func (e *Extractor) Extract(
	_ context.Context, documentID string, content []byte,
) ([]domain.Segment, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip archive: %w", domain.ErrExtraction, err)
	}

	// Slide files are not stored in deck order inside the archive.
	type slideFile struct {
		number int
		file   *zip.File
	}
	var slides []slideFile
	for _, file := range reader.File {
		m := slidePattern.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{number: n, file: file})
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: no slides in archive", domain.ErrExtraction)
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	var segments []domain.Segment
	for _, s := range slides {
		text, err := extractSlideText(s.file)
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			DocumentID: documentID,
			OrderIndex: len(segments),
			Text:       text,
			Provenance: domain.Provenance{
				Kind:  domain.ProvenanceSlide,
				Index: s.number,
			},
		})
	}

	return segments, nil
}

// slideXML captures the text runs of one slide. DrawingML nests runs
// inside shapes and paragraphs; collecting every <a:t> in document
// order preserves reading order well enough for retrieval.
type slideXML struct {
	Texts []string `xml:"cSld>spTree>sp>txBody>p>r>t"`
}

// extractSlideText reads one slide XML file and joins its text runs.
func extractSlideText(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", domain.ErrExtraction, file.Name, err)
	}

	content, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", domain.ErrExtraction, file.Name, err)
	}

	var slide slideXML
	if err := xml.Unmarshal(content, &slide); err != nil {
		return "", fmt.Errorf("%w: parse %s: %w", domain.ErrExtraction, file.Name, err)
	}

	return strings.Join(slide.Texts, "\n"), nil
}
