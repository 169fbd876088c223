// Package config loads the TOML configuration file. Secrets never live
// here; they come from the environment through the token provider.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/recall-labs/recall-cli/internal/core/domain"
)

// DefaultDirName is the per-user configuration directory under $HOME.
const DefaultDirName = ".recall"

// Config is the full application configuration.
type Config struct {
	// Corpus selects the index collection. One database file per corpus.
	Corpus string `toml:"corpus"`

	// DataDir overrides where corpus databases live.
	// Defaults to <config dir>/data.
	DataDir string `toml:"data_dir"`

	Sources   []SourceConfig  `toml:"sources"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Sync      SyncConfig      `toml:"sync"`
}

// SourceConfig declares one document source.
type SourceConfig struct {
	// ID is the user-chosen source identifier, unique within the config.
	ID string `toml:"id"`

	// Type is the source kind: "filesystem" or "gdrive".
	Type string `toml:"type"`

	// Path is the root directory for filesystem sources.
	Path string `toml:"path"`

	// FolderID restricts a gdrive source to one folder.
	FolderID string `toml:"folder_id"`
}

// EmbeddingConfig configures the embedding service.
type EmbeddingConfig struct {
	Model string `toml:"model"`

	// BaseURL points at an OpenAI-compatible endpoint. Empty means the
	// OpenAI API.
	BaseURL string `toml:"base_url"`

	// BatchSize caps texts per embedding request.
	BatchSize int `toml:"batch_size"`

	// Dimensions overrides the vector size for models the CLI does not
	// know about (local servers).
	Dimensions int `toml:"dimensions"`
}

// LLMConfig configures the generation service.
type LLMConfig struct {
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// ChunkingConfig configures the chunker.
type ChunkingConfig struct {
	MaxTokens     int `toml:"max_tokens"`
	OverlapTokens int `toml:"overlap_tokens"`
}

// SyncConfig configures the sync pipeline.
type SyncConfig struct {
	// Workers is the number of concurrent document pipelines.
	Workers int `toml:"workers"`

	// Interval is the watch-mode periodic sync interval, e.g. "10m".
	// Zero disables timed syncs in watch mode.
	Interval duration `toml:"interval"`
}

// duration unmarshals TOML strings like "10m" into a time.Duration.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Duration returns the parsed interval.
func (d duration) Duration() time.Duration {
	return time.Duration(d)
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultDirName), nil
}

// Load reads configuration from path. An empty path falls back to
// $RECALL_CONFIG, then <config dir>/config.toml. A missing file yields
// pure defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("RECALL_CONFIG")
	}
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.toml")
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidInput, path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Corpus == "" {
		c.Corpus = "default"
	}
	if c.DataDir == "" {
		if dir, err := DefaultDir(); err == nil {
			c.DataDir = filepath.Join(dir, "data")
		}
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.Chunking.MaxTokens <= 0 {
		c.Chunking.MaxTokens = 400
	}
	if c.Chunking.OverlapTokens < 0 {
		c.Chunking.OverlapTokens = 0
	} else if c.Chunking.OverlapTokens == 0 {
		c.Chunking.OverlapTokens = 50
	}
	if c.Sync.Workers <= 0 {
		c.Sync.Workers = 4
	}
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("%w: source missing id", domain.ErrInvalidInput)
		}
		if seen[src.ID] {
			return fmt.Errorf("%w: duplicate source id %q", domain.ErrInvalidInput, src.ID)
		}
		seen[src.ID] = true

		switch src.Type {
		case "filesystem":
			if src.Path == "" {
				return fmt.Errorf("%w: filesystem source %q missing path", domain.ErrInvalidInput, src.ID)
			}
		case "gdrive":
		default:
			return fmt.Errorf("%w: source %q has unknown type %q", domain.ErrInvalidInput, src.ID, src.Type)
		}
	}
	if c.Chunking.OverlapTokens >= c.Chunking.MaxTokens {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than max tokens %d",
			domain.ErrInvalidInput, c.Chunking.OverlapTokens, c.Chunking.MaxTokens)
	}
	return nil
}
