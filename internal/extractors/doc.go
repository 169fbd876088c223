// Package extractors provides the extractor registry and the format
// extractors that turn fetched document bytes into ordered text
// segments with provenance.
//
// Dispatch is by MIME type: adding a format means registering another
// extractor, not modifying callers. Supported formats live in
// subpackages:
//
//   - pdf: PDF via pdftotext, page provenance
//   - docx: Word documents, paragraph provenance
//   - pptx: slide decks, slide provenance
//   - plaintext: plain text and markdown, paragraph provenance
package extractors
