// Package chunker splits extracted segments into overlapping
// token-bounded chunks sized to the embedding context budget.
//
// Chunking is fully deterministic: tokens are whitespace-delimited,
// boundaries depend only on the input, and chunk IDs are derived from
// (document ID, emission order, document revision). Re-chunking the
// same revision yields byte-identical chunks.
package chunker

import (
	"strings"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
)

// DefaultMaxTokens is the default token budget per chunk.
const DefaultMaxTokens = 400

// DefaultOverlapTokens is the default trailing-context carryover.
const DefaultOverlapTokens = 50

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker implements deterministic token-bounded chunking.
type Chunker struct{}

// New creates a new chunker.
func New() *Chunker {
	return &Chunker{}
}

// token is one whitespace-delimited word tagged with the provenance of
// the segment it came from.
type token struct {
	text       string
	provenance domain.Provenance
}

// Chunk splits the segments into chunks of at most maxTokens tokens.
// Each chunk after the first repeats the trailing overlapTokens of the
// previous chunk for context continuity across boundaries. A segment
// longer than maxTokens is split at token boundaries, never truncated.
func (c *Chunker) Chunk(
	documentID, revision string,
	segments []domain.Segment,
	maxTokens, overlapTokens int,
) ([]domain.Chunk, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlapTokens < 0 {
		overlapTokens = DefaultOverlapTokens
	}
	// Overlap must leave room for fresh tokens in every chunk.
	if overlapTokens >= maxTokens {
		overlapTokens = maxTokens / 4
	}

	stream := tokenise(segments)
	if len(stream) == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	var carry []token // trailing overlap from the previous chunk

	pos := 0
	order := 0
	for pos < len(stream) {
		budget := maxTokens - len(carry)
		end := pos + budget
		if end > len(stream) {
			end = len(stream)
		}
		fresh := stream[pos:end]

		words := make([]string, 0, len(carry)+len(fresh))
		for _, t := range carry {
			words = append(words, t.text)
		}
		for _, t := range fresh {
			words = append(words, t.text)
		}

		chunks = append(chunks, domain.Chunk{
			ID:               domain.ChunkID(documentID, revision, order),
			DocumentID:       documentID,
			DocumentRevision: revision,
			OrderIndex:       order,
			Text:             strings.Join(words, " "),
			// Cite where the first fresh token came from; the carried
			// overlap already belongs to the previous chunk's citation.
			Provenance: fresh[0].provenance,
			TokenCount: len(words),
		})
		order++

		pos = end
		if pos >= len(stream) {
			break
		}

		all := append(append([]token(nil), carry...), fresh...)
		if overlapTokens > 0 && len(all) > overlapTokens {
			carry = all[len(all)-overlapTokens:]
		} else if overlapTokens > 0 {
			carry = all
		} else {
			carry = nil
		}
	}

	return chunks, nil
}

// CountTokens returns the token length of text under the chunker's
// whitespace tokenisation. Used to size prompt context budgets the same
// way chunk budgets are sized.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// tokenise flattens the segments into a provenance-tagged token stream
// in reading order.
func tokenise(segments []domain.Segment) []token {
	var stream []token
	for _, seg := range segments {
		for _, w := range strings.Fields(seg.Text) {
			stream = append(stream, token{text: w, provenance: seg.Provenance})
		}
	}
	return stream
}
