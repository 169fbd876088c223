package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func vectorsFor(documentID, revision string, embeddings ...[]float32) []domain.IndexedVector {
	vectors := make([]domain.IndexedVector, len(embeddings))
	for i, emb := range embeddings {
		vectors[i] = domain.IndexedVector{
			ChunkID:          domain.ChunkID(documentID, revision, i),
			DocumentID:       documentID,
			DocumentRevision: revision,
			Vector:           emb,
			Text:             fmt.Sprintf("chunk %d of %s", i, documentID),
			Provenance:       domain.Provenance{Kind: domain.ProvenancePage, Index: i + 1},
		}
	}
	return vectors
}

func TestNewStore(t *testing.T) {
	t.Run("creates one database file per corpus", func(t *testing.T) {
		dir := t.TempDir()

		a, err := NewStore(dir, "work")
		require.NoError(t, err)
		defer a.Close()
		b, err := NewStore(dir, "personal")
		require.NoError(t, err)
		defer b.Close()

		assert.NotEqual(t, a.Path(), b.Path())
	})

	t.Run("reopening preserves data", func(t *testing.T) {
		dir := t.TempDir()
		ctx := context.Background()

		store, err := NewStore(dir, "test")
		require.NoError(t, err)
		require.NoError(t, store.Upsert(ctx, "fs:a", "rev1",
			vectorsFor("fs:a", "rev1", []float32{1, 0})))
		require.NoError(t, store.Close())

		reopened, err := NewStore(dir, "test")
		require.NoError(t, err)
		defer reopened.Close()

		revisions, err := reopened.ListDocumentRevisions(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"fs:a": "rev1"}, revisions)
	})
}

func TestStore_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces old revision completely", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.Upsert(ctx, "fs:a", "rev1",
			vectorsFor("fs:a", "rev1", []float32{1, 0}, []float32{0, 1})))
		require.NoError(t, store.Upsert(ctx, "fs:a", "rev2",
			vectorsFor("fs:a", "rev2", []float32{1, 0})))

		hits, err := store.Search(ctx, []float32{1, 0}, 10, driven.SearchFilters{})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "rev2", hits[0].Vector.DocumentRevision)
		assert.Equal(t, domain.ChunkID("fs:a", "rev2", 0), hits[0].Vector.ChunkID)
	})

	t.Run("same revision twice is idempotent", func(t *testing.T) {
		store := newTestStore(t)
		vectors := vectorsFor("fs:a", "rev1", []float32{1, 0}, []float32{0, 1})

		require.NoError(t, store.Upsert(ctx, "fs:a", "rev1", vectors))
		require.NoError(t, store.Upsert(ctx, "fs:a", "rev1", vectors))

		hits, err := store.Search(ctx, []float32{1, 1}, 10, driven.SearchFilters{})
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("rejects chunk IDs held by another document", func(t *testing.T) {
		store := newTestStore(t)
		vectors := vectorsFor("fs:a", "rev1", []float32{1, 0})
		require.NoError(t, store.Upsert(ctx, "fs:a", "rev1", vectors))

		stolen := vectors
		stolen[0].DocumentID = "fs:b"
		err := store.Upsert(ctx, "fs:b", "rev1", stolen)

		assert.ErrorIs(t, err, domain.ErrChunkCollision)

		// The original owner is untouched.
		revisions, err := store.ListDocumentRevisions(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"fs:a": "rev1"}, revisions)
	})

	t.Run("documents from different sources never collide", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.Upsert(ctx, "fs:notes.txt", "rev1",
			vectorsFor("fs:notes.txt", "rev1", []float32{1, 0})))
		require.NoError(t, store.Upsert(ctx, "drive:notes.txt", "rev1",
			vectorsFor("drive:notes.txt", "rev1", []float32{0, 1})))

		revisions, err := store.ListDocumentRevisions(ctx)
		require.NoError(t, err)
		assert.Len(t, revisions, 2)
	})

	t.Run("empty vector set records the document", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.Upsert(ctx, "fs:empty", "rev1", nil))

		revisions, err := store.ListDocumentRevisions(ctx)
		require.NoError(t, err)
		assert.Equal(t, "rev1", revisions["fs:empty"])
	})
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes document and chunks", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Upsert(ctx, "fs:a", "rev1",
			vectorsFor("fs:a", "rev1", []float32{1, 0})))

		require.NoError(t, store.Delete(ctx, "fs:a"))

		revisions, err := store.ListDocumentRevisions(ctx)
		require.NoError(t, err)
		assert.Empty(t, revisions)
		hits, err := store.Search(ctx, []float32{1, 0}, 10, driven.SearchFilters{})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("deleting an absent document is a no-op", func(t *testing.T) {
		store := newTestStore(t)

		assert.NoError(t, store.Delete(ctx, "fs:missing"))
	})
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("returns results by descending similarity", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Upsert(ctx, "fs:a", "rev1",
			vectorsFor("fs:a", "rev1", []float32{1, 0}, []float32{0.9, 0.1}, []float32{0, 1})))

		hits, err := store.Search(ctx, []float32{1, 0}, 2, driven.SearchFilters{})

		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Greater(t, hits[0].Score, hits[1].Score)
		assert.Equal(t, domain.ChunkID("fs:a", "rev1", 0), hits[0].Vector.ChunkID)
	})

	t.Run("ties break by ascending chunk ID", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Upsert(ctx, "fs:a", "rev1",
			vectorsFor("fs:a", "rev1", []float32{1, 0}, []float32{1, 0})))

		first, err := store.Search(ctx, []float32{1, 0}, 2, driven.SearchFilters{})
		require.NoError(t, err)
		second, err := store.Search(ctx, []float32{1, 0}, 2, driven.SearchFilters{})
		require.NoError(t, err)

		require.Len(t, first, 2)
		assert.Equal(t, first, second)
		assert.Less(t, first[0].Vector.ChunkID, first[1].Vector.ChunkID)
	})

	t.Run("source filter restricts results", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Upsert(ctx, "fs:a", "rev1",
			vectorsFor("fs:a", "rev1", []float32{1, 0})))
		require.NoError(t, store.Upsert(ctx, "drive:b", "rev1",
			vectorsFor("drive:b", "rev1", []float32{1, 0})))

		hits, err := store.Search(ctx, []float32{1, 0}, 10,
			driven.SearchFilters{SourceIDs: []string{"drive"}})

		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "drive:b", hits[0].Vector.DocumentID)
	})

	t.Run("dimension mismatch is reported", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Upsert(ctx, "fs:a", "rev1",
			vectorsFor("fs:a", "rev1", []float32{1, 0})))

		_, err := store.Search(ctx, []float32{1, 0, 0}, 10, driven.SearchFilters{})

		assert.ErrorIs(t, err, domain.ErrModelMismatch)
	})

	t.Run("empty corpus returns no hits", func(t *testing.T) {
		store := newTestStore(t)

		hits, err := store.Search(ctx, []float32{1, 0}, 10, driven.SearchFilters{})

		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("provenance round-trips", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Upsert(ctx, "fs:a", "rev1",
			vectorsFor("fs:a", "rev1", []float32{1, 0})))

		hits, err := store.Search(ctx, []float32{1, 0}, 1, driven.SearchFilters{})

		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, domain.Provenance{Kind: domain.ProvenancePage, Index: 1},
			hits[0].Vector.Provenance)
	})
}

func TestStore_Metadata(t *testing.T) {
	ctx := context.Background()

	t.Run("zero-valued for a new corpus", func(t *testing.T) {
		store := newTestStore(t)

		meta, err := store.Metadata(ctx)

		require.NoError(t, err)
		assert.Equal(t, driven.CorpusMetadata{}, meta)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		store := newTestStore(t)
		want := driven.CorpusMetadata{EmbeddingModel: "text-embedding-3-small", Dimensions: 1536}

		require.NoError(t, store.SetMetadata(ctx, want))
		got, err := store.Metadata(ctx)

		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("set overwrites previous values", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.SetMetadata(ctx,
			driven.CorpusMetadata{EmbeddingModel: "old", Dimensions: 2}))

		want := driven.CorpusMetadata{EmbeddingModel: "new", Dimensions: 3}
		require.NoError(t, store.SetMetadata(ctx, want))

		got, err := store.Metadata(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()

	t.Run("drops documents and chunks, keeps metadata", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Upsert(ctx, "fs:a", "rev1",
			vectorsFor("fs:a", "rev1", []float32{1, 0})))
		meta := driven.CorpusMetadata{EmbeddingModel: "m", Dimensions: 2}
		require.NoError(t, store.SetMetadata(ctx, meta))

		require.NoError(t, store.Reset(ctx))

		revisions, err := store.ListDocumentRevisions(ctx)
		require.NoError(t, err)
		assert.Empty(t, revisions)
		got, err := store.Metadata(ctx)
		require.NoError(t, err)
		assert.Equal(t, meta, got)
	})
}

func TestVectorEncoding(t *testing.T) {
	t.Run("round-trips float32 slices", func(t *testing.T) {
		in := []float32{0, 1, -1, 0.5, 3.14159}

		out := bytesToFloat32Slice(float32SliceToBytes(in))

		assert.Equal(t, in, out)
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
