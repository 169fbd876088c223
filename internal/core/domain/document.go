package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DocumentRef identifies one logical document in one source.
// Refs are re-derived on every sync pass and never cached across runs.
type DocumentRef struct {
	// SourceID links to the source that listed this document.
	SourceID string

	// ExternalID is the source-assigned identifier (path, Drive file ID).
	ExternalID string

	// DisplayName is the human-readable name.
	DisplayName string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// RevisionFingerprint is an opaque value that changes if and only if
	// the document content changed. It is the sole re-indexing signal.
	RevisionFingerprint string

	// ModifiedAt is the source-reported modification time.
	ModifiedAt time.Time
}

// DocumentID returns the stable identifier used by the index store.
// It combines source and external IDs so the same path in two sources
// never collides.
func (r DocumentRef) DocumentID() string {
	return r.SourceID + ":" + r.ExternalID
}

// ProvenanceKind names the structural unit a segment came from.
type ProvenanceKind string

const (
	// ProvenancePage is a PDF page.
	ProvenancePage ProvenanceKind = "page"

	// ProvenanceSlide is a presentation slide.
	ProvenanceSlide ProvenanceKind = "slide"

	// ProvenanceParagraph is a text or word-processing paragraph.
	ProvenanceParagraph ProvenanceKind = "paragraph"
)

// Provenance locates text within its source document for citations.
type Provenance struct {
	// Kind is the structural unit (page, slide, paragraph).
	Kind ProvenanceKind `json:"kind"`

	// Index is the 1-based position of that unit in reading order.
	Index int `json:"index"`
}

// String renders the provenance for display, e.g. "page 2".
func (p Provenance) String() string {
	return fmt.Sprintf("%s %d", p.Kind, p.Index)
}

// Segment is one parse unit (a PDF page, a slide, a paragraph).
// Segments are ephemeral: produced by an extractor, consumed by the chunker.
type Segment struct {
	// DocumentID links to the document being extracted.
	DocumentID string

	// OrderIndex is the 0-based reading-order position.
	OrderIndex int

	// Text is the extracted text.
	Text string

	// Provenance locates this segment in the source document.
	Provenance Provenance
}

// Chunk is a token-bounded span of document text sized for the
// embedding and generation context budget. Chunks are immutable once
// embedded.
type Chunk struct {
	// ID is deterministic from (DocumentID, OrderIndex, DocumentRevision)
	// so re-chunking the same revision yields identical IDs.
	ID string

	// DocumentID links to the parent document.
	DocumentID string

	// DocumentRevision is the revision fingerprint the chunk was cut from.
	DocumentRevision string

	// OrderIndex is the 0-based emission order within the document.
	OrderIndex int

	// Text is the chunk content.
	Text string

	// Provenance locates the start of the chunk in the source document.
	Provenance Provenance

	// TokenCount is the token length of Text.
	TokenCount int
}

// ChunkID derives the deterministic chunk identifier.
// Identical inputs always produce identical IDs; any change to the
// document revision changes every chunk ID for that document.
func ChunkID(documentID, revision string, orderIndex int) string {
	h := sha256.New()
	h.Write([]byte(documentID))
	h.Write([]byte{0})
	h.Write([]byte(revision))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", orderIndex)
	return hex.EncodeToString(h.Sum(nil))
}

// IndexedVector is the persisted record in the index store.
// Invariant: at rest, every stored vector for one document carries the
// same DocumentRevision.
type IndexedVector struct {
	// ChunkID is the deterministic chunk identifier.
	ChunkID string

	// DocumentID links to the parent document.
	DocumentID string

	// DocumentRevision is the revision the vector was embedded from.
	DocumentRevision string

	// Vector is the embedding.
	Vector []float32

	// Text is the chunk content, kept for prompt assembly.
	Text string

	// Provenance locates the chunk for citations.
	Provenance Provenance
}
