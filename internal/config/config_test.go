package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-labs/recall-cli/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))

		require.NoError(t, err)
		assert.Equal(t, "default", cfg.Corpus)
		assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
		assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
		assert.Equal(t, 400, cfg.Chunking.MaxTokens)
		assert.Equal(t, 50, cfg.Chunking.OverlapTokens)
		assert.Equal(t, 4, cfg.Sync.Workers)
	})

	t.Run("parses a full config", func(t *testing.T) {
		path := writeConfig(t, `
corpus = "research"

[[sources]]
id = "papers"
type = "filesystem"
path = "/home/me/papers"

[[sources]]
id = "shared"
type = "gdrive"
folder_id = "abc123"

[embedding]
model = "text-embedding-3-large"
base_url = "http://localhost:11434/v1"

[llm]
model = "gpt-4o"

[chunking]
max_tokens = 256
overlap_tokens = 32

[sync]
workers = 8
interval = "15m"
`)

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "research", cfg.Corpus)
		require.Len(t, cfg.Sources, 2)
		assert.Equal(t, "papers", cfg.Sources[0].ID)
		assert.Equal(t, "filesystem", cfg.Sources[0].Type)
		assert.Equal(t, "abc123", cfg.Sources[1].FolderID)
		assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
		assert.Equal(t, "http://localhost:11434/v1", cfg.Embedding.BaseURL)
		assert.Equal(t, 256, cfg.Chunking.MaxTokens)
		assert.Equal(t, 8, cfg.Sync.Workers)
		assert.Equal(t, 15*time.Minute, cfg.Sync.Interval.Duration())
	})

	t.Run("malformed TOML maps to invalid input", func(t *testing.T) {
		path := writeConfig(t, "corpus = [unclosed")

		_, err := Load(path)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("duplicate source IDs are rejected", func(t *testing.T) {
		path := writeConfig(t, `
[[sources]]
id = "docs"
type = "filesystem"
path = "/a"

[[sources]]
id = "docs"
type = "filesystem"
path = "/b"
`)

		_, err := Load(path)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("filesystem source requires a path", func(t *testing.T) {
		path := writeConfig(t, `
[[sources]]
id = "docs"
type = "filesystem"
`)

		_, err := Load(path)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown source type is rejected", func(t *testing.T) {
		path := writeConfig(t, `
[[sources]]
id = "docs"
type = "carrier-pigeon"
`)

		_, err := Load(path)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("overlap must stay below max tokens", func(t *testing.T) {
		path := writeConfig(t, `
[chunking]
max_tokens = 100
overlap_tokens = 100
`)

		_, err := Load(path)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
