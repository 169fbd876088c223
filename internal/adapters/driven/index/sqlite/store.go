// Package sqlite implements the index store on SQLite.
//
// One database file per corpus holds documents, chunks with their
// embeddings (little-endian float32 blobs) and corpus metadata.
// Similarity search scans the stored vectors with cosine similarity;
// at personal-corpus scale an exact scan outperforms maintaining an
// approximate index and keeps results deterministic.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/recall-labs/recall-cli/internal/adapters/driven/index/sqlite/migrations"
	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
)

// Metadata keys in corpus_meta.
const (
	metaEmbeddingModel = "embedding_model"
	metaDimensions     = "dimensions"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// Store is a SQLite-backed index store for one corpus.
type Store struct {
	db    *sql.DB
	path  string
	locks *docLocks
}

// NewStore opens (or creates) the index database for the named corpus.
// If dataDir is empty, defaults to ~/.recall/data.
func NewStore(dataDir, corpus string) (*Store, error) {
	if corpus == "" {
		corpus = "default"
	}
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".recall", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, corpus+".db")

	// WAL keeps searches lock-free relative to writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, classify(fmt.Errorf("enabling foreign keys: %w", err))
	}

	s := &Store{
		db:    db,
		path:  dbPath,
		locks: newDocLocks(),
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, classify(fmt.Errorf("running migrations: %w", err))
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies any pending .up.sql migrations in version order.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version,
		); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Upsert atomically replaces all entries for documentID with vectors.
// Writes for a single document are serialised by a per-document lock;
// the transaction keeps delete-old and insert-new invisible to readers
// until commit, so no mix of revisions is ever observable.
func (s *Store) Upsert(
	ctx context.Context, documentID, revision string, vectors []domain.IndexedVector,
) error {
	unlock := s.locks.lock(documentID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	// A chunk ID held by a different document means a fingerprint
	// collision; fail this document rather than silently overwriting.
	checkStmt, err := tx.PrepareContext(ctx,
		"SELECT document_id FROM chunks WHERE id = ?")
	if err != nil {
		return classify(fmt.Errorf("preparing collision check: %w", err))
	}
	defer checkStmt.Close()

	for _, v := range vectors {
		var owner string
		err := checkStmt.QueryRowContext(ctx, v.ChunkID).Scan(&owner)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return classify(fmt.Errorf("checking chunk %s: %w", v.ChunkID, err))
		case owner != documentID:
			return fmt.Errorf("%w: chunk %s held by document %s",
				domain.ErrChunkCollision, v.ChunkID, owner)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return classify(fmt.Errorf("deleting old chunks: %w", err))
	}

	sourceID := sourceIDOf(documentID)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, source_id, revision, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			revision = excluded.revision,
			updated_at = excluded.updated_at
	`, documentID, sourceID, revision, time.Now().UTC()); err != nil {
		return classify(fmt.Errorf("saving document: %w", err))
	}

	insertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, revision, position, text, provenance, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return classify(fmt.Errorf("preparing insert: %w", err))
	}
	defer insertStmt.Close()

	for i, v := range vectors {
		provJSON, err := json.Marshal(v.Provenance)
		if err != nil {
			return fmt.Errorf("marshalling provenance: %w", err)
		}
		if _, err := insertStmt.ExecContext(ctx,
			v.ChunkID, documentID, revision, i, v.Text,
			string(provJSON), float32SliceToBytes(v.Vector)); err != nil {
			return classify(fmt.Errorf("inserting chunk %s: %w", v.ChunkID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// Delete removes all entries for documentID. Deleting an absent
// document is a no-op.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	unlock := s.locks.lock(documentID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return classify(fmt.Errorf("deleting chunks: %w", err))
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM documents WHERE id = ?", documentID); err != nil {
		return classify(fmt.Errorf("deleting document: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// Search scans the stored vectors and returns the topK most similar by
// cosine similarity, descending, ties broken by ascending chunk ID.
func (s *Store) Search(
	ctx context.Context, query []float32, topK int, filters driven.SearchFilters,
) ([]driven.SearchHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	sqlQuery := `
		SELECT c.id, c.document_id, c.revision, c.text, c.provenance, c.embedding
		FROM chunks c`
	var args []any
	if len(filters.SourceIDs) > 0 {
		placeholders := strings.Repeat("?,", len(filters.SourceIDs))
		sqlQuery += `
		JOIN documents d ON d.id = c.document_id
		WHERE d.source_id IN (` + placeholders[:len(placeholders)-1] + `)`
		for _, id := range filters.SourceIDs {
			args = append(args, id)
		}
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("querying chunks: %w", err))
	}
	defer rows.Close()

	var hits []driven.SearchHit
	for rows.Next() {
		var v domain.IndexedVector
		var provJSON string
		var blob []byte
		if err := rows.Scan(&v.ChunkID, &v.DocumentID, &v.DocumentRevision,
			&v.Text, &provJSON, &blob); err != nil {
			return nil, classify(fmt.Errorf("scanning chunk: %w", err))
		}

		if len(blob)%4 != 0 {
			return nil, fmt.Errorf("%w: malformed embedding for chunk %s",
				domain.ErrStoreCorrupted, v.ChunkID)
		}
		v.Vector = bytesToFloat32Slice(blob)
		if len(v.Vector) != len(query) {
			return nil, fmt.Errorf("%w: stored dimension %d, query dimension %d",
				domain.ErrModelMismatch, len(v.Vector), len(query))
		}

		if err := json.Unmarshal([]byte(provJSON), &v.Provenance); err != nil {
			return nil, fmt.Errorf("%w: malformed provenance for chunk %s",
				domain.ErrStoreCorrupted, v.ChunkID)
		}

		hits = append(hits, driven.SearchHit{
			Vector: v,
			Score:  cosineSimilarity(query, v.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterating chunks: %w", err))
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Vector.ChunkID < hits[j].Vector.ChunkID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// ListDocumentRevisions returns the document ID to revision map.
func (s *Store) ListDocumentRevisions(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, revision FROM documents")
	if err != nil {
		return nil, classify(fmt.Errorf("querying documents: %w", err))
	}
	defer rows.Close()

	revisions := make(map[string]string)
	for rows.Next() {
		var id, revision string
		if err := rows.Scan(&id, &revision); err != nil {
			return nil, classify(fmt.Errorf("scanning document: %w", err))
		}
		revisions[id] = revision
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterating documents: %w", err))
	}
	return revisions, nil
}

// Metadata returns the stored corpus metadata.
func (s *Store) Metadata(ctx context.Context) (driven.CorpusMetadata, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM corpus_meta")
	if err != nil {
		return driven.CorpusMetadata{}, classify(fmt.Errorf("querying metadata: %w", err))
	}
	defer rows.Close()

	var meta driven.CorpusMetadata
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return driven.CorpusMetadata{}, classify(fmt.Errorf("scanning metadata: %w", err))
		}
		switch key {
		case metaEmbeddingModel:
			meta.EmbeddingModel = value
		case metaDimensions:
			if _, err := fmt.Sscanf(value, "%d", &meta.Dimensions); err != nil {
				return driven.CorpusMetadata{}, fmt.Errorf(
					"%w: malformed dimensions %q", domain.ErrStoreCorrupted, value)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return driven.CorpusMetadata{}, classify(fmt.Errorf("iterating metadata: %w", err))
	}
	return meta, nil
}

// SetMetadata records the corpus metadata.
func (s *Store) SetMetadata(ctx context.Context, meta driven.CorpusMetadata) error {
	for key, value := range map[string]string{
		metaEmbeddingModel: meta.EmbeddingModel,
		metaDimensions:     fmt.Sprintf("%d", meta.Dimensions),
	} {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO corpus_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return classify(fmt.Errorf("saving metadata %s: %w", key, err))
		}
	}
	return nil
}

// Reset drops every indexed vector and document, keeping the schema.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return classify(fmt.Errorf("clearing chunks: %w", err))
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return classify(fmt.Errorf("clearing documents: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// sourceIDOf extracts the source component of a document ID
// ("sourceID:externalID").
func sourceIDOf(documentID string) string {
	if i := strings.Index(documentID, ":"); i > 0 {
		return documentID[:i]
	}
	return ""
}

// classify maps driver errors onto the domain taxonomy: locked/busy is
// transient, a malformed database is fatal.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "busy"):
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	case strings.Contains(msg, "file is not a database"),
		strings.Contains(msg, "malformed"),
		strings.Contains(msg, "corrupt"):
		return fmt.Errorf("%w: %w", domain.ErrStoreCorrupted, err)
	}
	return err
}

// cosineSimilarity computes the cosine of the angle between a and b.
// Returns 0 for zero-magnitude vectors.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// float32SliceToBytes encodes vectors as little-endian float32 blobs.
func float32SliceToBytes(floats []float32) []byte {
	bytes := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(bytes[i*4:], math.Float32bits(f))
	}
	return bytes
}

// bytesToFloat32Slice decodes little-endian float32 blobs.
func bytesToFloat32Slice(bytes []byte) []float32 {
	floats := make([]float32, len(bytes)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(bytes[i*4:]))
	}
	return floats
}
