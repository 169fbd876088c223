package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
	"github.com/recall-labs/recall-cli/internal/core/ports/driving"
)

// fakeLLM records prompts and replies with a canned answer.
type fakeLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (l *fakeLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	return l.answer, nil
}

func (l *fakeLLM) ModelName() string          { return "fake-llm" }
func (l *fakeLLM) Ping(context.Context) error { return nil }
func (l *fakeLLM) Close() error               { return nil }

func (l *fakeLLM) lastPrompt() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.prompts) == 0 {
		return ""
	}
	return l.prompts[len(l.prompts)-1]
}

func hit(documentID string, prov domain.Provenance, score float64, text string) driven.SearchHit {
	return driven.SearchHit{
		Vector: domain.IndexedVector{
			ChunkID:    domain.ChunkID(documentID, "r1", prov.Index),
			DocumentID: documentID,
			Vector:     []float32{1, 0, 0},
			Text:       text,
			Provenance: prov,
		},
		Score: score,
	}
}

func TestAnswerEngine_Answer(t *testing.T) {
	ctx := context.Background()
	page := func(i int) domain.Provenance {
		return domain.Provenance{Kind: domain.ProvenancePage, Index: i}
	}

	t.Run("rejects empty queries", func(t *testing.T) {
		engine := NewAnswerEngine(newFakeEmbedder(), &fakeLLM{}, newMemStore())

		_, err := engine.Answer(ctx, "   ", driving.AnswerOptions{})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("grounds the answer in retrieved passages", func(t *testing.T) {
		store := newMemStore()
		store.hits = []driven.SearchHit{
			hit("fs:notes.pdf", page(2), 0.93, "the meeting moved to tuesday"),
			hit("fs:other.pdf", page(5), 0.71, "unrelated planning detail"),
		}
		llm := &fakeLLM{answer: "The meeting is on Tuesday [1]."}
		engine := NewAnswerEngine(newFakeEmbedder(), llm, store)

		result, err := engine.Answer(ctx, "when is the meeting?", driving.AnswerOptions{})

		require.NoError(t, err)
		assert.False(t, result.Ungrounded)
		assert.Equal(t, "The meeting is on Tuesday [1].", result.Answer)
		require.Len(t, result.Citations, 2)
		assert.Equal(t, "fs:notes.pdf", result.Citations[0].DocumentID)
		assert.Equal(t, page(2), result.Citations[0].Provenance)
		assert.InDelta(t, 0.93, result.Citations[0].Score, 1e-9)

		prompt := llm.lastPrompt()
		assert.Contains(t, prompt, "the meeting moved to tuesday")
		assert.Contains(t, prompt, "when is the meeting?")
		assert.Contains(t, prompt, "[1]")
	})

	t.Run("empty retrieval yields an ungrounded answer", func(t *testing.T) {
		llm := &fakeLLM{answer: "I do not have notes on that."}
		engine := NewAnswerEngine(newFakeEmbedder(), llm, newMemStore())

		result, err := engine.Answer(ctx, "what about quasars?", driving.AnswerOptions{})

		require.NoError(t, err)
		assert.True(t, result.Ungrounded)
		assert.Empty(t, result.Citations)
		assert.Contains(t, llm.lastPrompt(), "what about quasars?")
	})

	t.Run("duplicate passages from one location are collapsed", func(t *testing.T) {
		store := newMemStore()
		store.hits = []driven.SearchHit{
			hit("fs:doc.pdf", page(1), 0.9, "first chunk of page one"),
			hit("fs:doc.pdf", page(1), 0.85, "second chunk of page one"),
			hit("fs:doc.pdf", page(3), 0.8, "page three content"),
		}
		llm := &fakeLLM{answer: "ok"}
		engine := NewAnswerEngine(newFakeEmbedder(), llm, store)

		result, err := engine.Answer(ctx, "question", driving.AnswerOptions{})

		require.NoError(t, err)
		require.Len(t, result.Citations, 2)
		assert.Equal(t, page(1), result.Citations[0].Provenance)
		assert.Equal(t, page(3), result.Citations[1].Provenance)
	})

	t.Run("generation failure propagates", func(t *testing.T) {
		store := newMemStore()
		store.hits = []driven.SearchHit{hit("fs:doc.pdf", page(1), 0.9, "content")}
		llm := &fakeLLM{err: fmt.Errorf("%w: gave up", domain.ErrGenerationFailed)}
		engine := NewAnswerEngine(newFakeEmbedder(), llm, store)

		_, err := engine.Answer(ctx, "question", driving.AnswerOptions{})

		assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	})

	t.Run("search failure propagates", func(t *testing.T) {
		store := newMemStore()
		store.searchErr = fmt.Errorf("%w: locked", domain.ErrStoreUnavailable)
		engine := NewAnswerEngine(newFakeEmbedder(), &fakeLLM{}, store)

		_, err := engine.Answer(ctx, "question", driving.AnswerOptions{})

		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})

	t.Run("context budget drops trailing passages but keeps the best", func(t *testing.T) {
		store := newMemStore()
		store.hits = []driven.SearchHit{
			hit("fs:a.pdf", page(1), 0.9, strings.Repeat("word ", maxContextTokens)),
			hit("fs:b.pdf", page(1), 0.5, "small passage"),
		}
		llm := &fakeLLM{answer: "ok"}
		engine := NewAnswerEngine(newFakeEmbedder(), llm, store)

		result, err := engine.Answer(ctx, "question", driving.AnswerOptions{})

		require.NoError(t, err)
		require.Len(t, result.Citations, 1)
		assert.Equal(t, "fs:a.pdf", result.Citations[0].DocumentID)
		assert.NotContains(t, llm.lastPrompt(), "small passage")
	})
}
