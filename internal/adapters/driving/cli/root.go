// Package cli implements the recall command-line interface on cobra.
// Commands wire the core services from configuration at run time;
// nothing here holds pipeline logic.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recall-labs/recall-cli/internal/adapters/driven/auth"
	embeddingopenai "github.com/recall-labs/recall-cli/internal/adapters/driven/embedding/openai"
	"github.com/recall-labs/recall-cli/internal/adapters/driven/index/sqlite"
	llmopenai "github.com/recall-labs/recall-cli/internal/adapters/driven/llm/openai"
	"github.com/recall-labs/recall-cli/internal/chunker"
	"github.com/recall-labs/recall-cli/internal/config"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
	"github.com/recall-labs/recall-cli/internal/core/services"
	"github.com/recall-labs/recall-cli/internal/extractors"
	"github.com/recall-labs/recall-cli/internal/extractors/docx"
	"github.com/recall-labs/recall-cli/internal/extractors/pdf"
	"github.com/recall-labs/recall-cli/internal/extractors/plaintext"
	"github.com/recall-labs/recall-cli/internal/extractors/pptx"
	"github.com/recall-labs/recall-cli/internal/logger"
	"github.com/recall-labs/recall-cli/internal/sources/filesystem"
	"github.com/recall-labs/recall-cli/internal/sources/google"
	"github.com/recall-labs/recall-cli/internal/sources/google/drive"
)

var version = "dev"

var (
	flagConfig  string
	flagCorpus  string
	flagVerbose bool

	appConfig *config.Config
	tokens    driven.TokenProvider
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Sync personal documents into a searchable corpus",
	Long: `recall keeps a local vector index of your documents (local folders,
Google Drive) in sync and answers questions grounded in them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)

		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagCorpus != "" {
			cfg.Corpus = flagCorpus
		}
		appConfig = cfg
		tokens = auth.NewEnvProvider()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&flagCorpus, "corpus", "", "corpus name (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
}

// Execute runs the root command.
func Execute(v string) error {
	return ExecuteContext(context.Background(), v)
}

// ExecuteContext runs the root command under ctx so commands stop on
// signal-driven cancellation.
func ExecuteContext(ctx context.Context, v string) error {
	version = v
	return rootCmd.ExecuteContext(ctx)
}

// openStore opens the index database for the selected corpus.
func openStore() (*sqlite.Store, error) {
	return sqlite.NewStore(appConfig.DataDir, appConfig.Corpus)
}

// buildEmbedder constructs the embedding service from config and the
// token provider.
func buildEmbedder() (driven.EmbeddingService, error) {
	key, err := tokens.Token("openai")
	if err != nil {
		return nil, err
	}
	return embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
		APIKey:     key,
		BaseURL:    appConfig.Embedding.BaseURL,
		Model:      appConfig.Embedding.Model,
		BatchSize:  appConfig.Embedding.BatchSize,
		Dimensions: appConfig.Embedding.Dimensions,
	})
}

// buildLLM constructs the generation service.
func buildLLM() (driven.GenerationService, error) {
	key, err := tokens.Token("openai")
	if err != nil {
		return nil, err
	}
	return llmopenai.NewGenerationService(llmopenai.Config{
		APIKey:  key,
		BaseURL: appConfig.LLM.BaseURL,
		Model:   appConfig.LLM.Model,
	})
}

// buildSources constructs every configured document source.
func buildSources(ctx context.Context) ([]driven.DocumentSource, error) {
	sources := make([]driven.DocumentSource, 0, len(appConfig.Sources))
	for _, sc := range appConfig.Sources {
		switch sc.Type {
		case "filesystem":
			src, err := filesystem.New(sc.ID, sc.Path)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", sc.ID, err)
			}
			sources = append(sources, src)

		case "gdrive":
			ts, err := google.NewTokenSource(tokens)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", sc.ID, err)
			}
			svc, err := google.NewDriveService(ctx, ts)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", sc.ID, err)
			}
			sources = append(sources, drive.New(sc.ID, svc, drive.Config{FolderID: sc.FolderID}))

		default:
			return nil, fmt.Errorf("source %s: unknown type %q", sc.ID, sc.Type)
		}
	}
	return sources, nil
}

// buildRegistry constructs the extractor registry with every supported
// format registered.
func buildRegistry() *extractors.Registry {
	registry := extractors.NewRegistry()
	registry.Register(plaintext.New())
	registry.Register(docx.New())
	registry.Register(pptx.New())
	registry.Register(pdf.New())
	return registry
}

// buildCoordinator wires the full sync pipeline.
func buildCoordinator(
	sources []driven.DocumentSource,
	embedder driven.EmbeddingService,
	store driven.IndexStore,
) *services.SyncCoordinator {
	return services.NewSyncCoordinator(
		sources,
		buildRegistry(),
		chunker.New(),
		embedder,
		store,
		services.SyncConfig{
			Workers:       appConfig.Sync.Workers,
			MaxTokens:     appConfig.Chunking.MaxTokens,
			OverlapTokens: appConfig.Chunking.OverlapTokens,
		},
	)
}

func closeAll(closers ...interface{ Close() error }) {
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			logger.Warn("Close failed: %v", err)
		}
	}
}
