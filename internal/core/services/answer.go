package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/recall-labs/recall-cli/internal/chunker"
	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
	"github.com/recall-labs/recall-cli/internal/core/ports/driving"
	"github.com/recall-labs/recall-cli/internal/logger"
)

// Ensure AnswerEngine implements the interface.
var _ driving.AnswerService = (*AnswerEngine)(nil)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 5

// maxContextTokens bounds the assembled passage context so the prompt
// stays within the generation model's window.
const maxContextTokens = 3000

// answerMaxTokens bounds the generated answer length.
const answerMaxTokens = 1024

// AnswerEngine answers questions over the indexed corpus. It embeds
// the query, retrieves the closest chunks and grounds a generation call
// in them, returning the passages used as citations.
type AnswerEngine struct {
	embedder driven.EmbeddingService
	llm      driven.GenerationService
	store    driven.IndexStore
}

// NewAnswerEngine wires an answer engine.
func NewAnswerEngine(
	embedder driven.EmbeddingService,
	llm driven.GenerationService,
	store driven.IndexStore,
) *AnswerEngine {
	return &AnswerEngine{embedder: embedder, llm: llm, store: store}
}

// Answer runs the retrieval-augmented answer pipeline for one query.
func (e *AnswerEngine) Answer(ctx context.Context, query string, opts driving.AnswerOptions) (*domain.QueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	embeddings, err := e.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := e.store.Search(ctx, embeddings[0], topK, driven.SearchFilters{SourceIDs: opts.SourceIDs})
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	hits = dedupePassages(hits)

	if len(hits) == 0 {
		logger.Debug("No indexed content matched, answering ungrounded")
		answer, err := e.llm.Generate(ctx, ungroundedPrompt(query), e.generateOptions())
		if err != nil {
			return nil, err
		}
		return &domain.QueryResult{Answer: answer, Ungrounded: true}, nil
	}

	prompt, used := e.buildPrompt(query, hits)
	answer, err := e.llm.Generate(ctx, prompt, e.generateOptions())
	if err != nil {
		return nil, err
	}

	citations := make([]domain.Citation, 0, len(used))
	for _, hit := range used {
		citations = append(citations, domain.Citation{
			DocumentID: hit.Vector.DocumentID,
			Provenance: hit.Vector.Provenance,
			Score:      hit.Score,
		})
	}
	return &domain.QueryResult{Answer: answer, Citations: citations}, nil
}

func (e *AnswerEngine) generateOptions() driven.GenerateOptions {
	return driven.GenerateOptions{MaxTokens: answerMaxTokens, Temperature: 0.1}
}

// buildPrompt assembles the grounded prompt, dropping trailing passages
// once the context token budget is spent. Returns the hits that made it
// into the prompt, in retrieval order.
func (e *AnswerEngine) buildPrompt(query string, hits []driven.SearchHit) (string, []driven.SearchHit) {
	var sb strings.Builder
	sb.WriteString("You are a research assistant answering questions from a personal document collection.\n")
	sb.WriteString("Answer using only the numbered passages below. Cite passages as [1], [2] and so on.\n")
	sb.WriteString("If the passages do not contain the answer, say so.\n\nPassages:\n")

	used := make([]driven.SearchHit, 0, len(hits))
	budget := maxContextTokens
	for _, hit := range hits {
		cost := chunker.CountTokens(hit.Vector.Text)
		if cost > budget && len(used) > 0 {
			break
		}
		budget -= cost
		used = append(used, hit)
		fmt.Fprintf(&sb, "[%d] (%s, %s) %s\n\n",
			len(used), hit.Vector.DocumentID, hit.Vector.Provenance, hit.Vector.Text)
	}

	fmt.Fprintf(&sb, "Question: %s\n\nAnswer:", query)
	return sb.String(), used
}

func ungroundedPrompt(query string) string {
	return fmt.Sprintf(
		"You are a research assistant. No documents in the collection matched this question, "+
			"so answer from general knowledge and say that the collection had nothing relevant.\n\n"+
			"Question: %s\n\nAnswer:", query)
}

// dedupePassages drops hits that duplicate an earlier hit's document
// and provenance. Overlapping chunks from the same page or paragraph
// add little signal but burn context budget.
func dedupePassages(hits []driven.SearchHit) []driven.SearchHit {
	type key struct {
		doc  string
		prov domain.Provenance
	}
	seen := make(map[key]bool, len(hits))
	out := hits[:0]
	for _, hit := range hits {
		k := key{doc: hit.Vector.DocumentID, prov: hit.Vector.Provenance}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, hit)
	}
	return out
}
