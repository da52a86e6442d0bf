// Package cli wires configuration, adapters and services behind the
// scorpius command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cisbeo/scorpius-rag/internal/adapters/driven/ai"
	"github.com/cisbeo/scorpius-rag/internal/adapters/driven/storage/sqlite"
	"github.com/cisbeo/scorpius-rag/internal/chunking"
	"github.com/cisbeo/scorpius-rag/internal/config"
	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driving"
	"github.com/cisbeo/scorpius-rag/internal/core/services"
	"github.com/cisbeo/scorpius-rag/internal/logger"
)

var version = "dev"

var (
	cfgPath string
	verbose bool

	cfg config.Config

	// Services are built on first use. Tests inject fakes directly.
	indexer      driving.Indexer
	queryService driving.QueryService

	closers []func() error
)

var rootCmd = &cobra.Command{
	Use:   "scorpius",
	Short: "RAG engine for French public procurement documents",
	Long: `Scorpius indexes French public procurement documents (CCTP, CCAP,
RC...) into a local vector store and answers questions about them with
source citations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if verbose || cfg.Verbose {
			logger.SetVerbose(true)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.scorpius/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// Execute runs the command tree and releases resources afterwards.
func Execute() error {
	defer closeResources()
	return rootCmd.Execute()
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// ensureServices builds the real adapter stack once. Commands that need
// the pipeline or the engines call it; version does not.
func ensureServices() error {
	if indexer != nil && queryService != nil {
		return nil
	}

	store, err := sqlite.NewStore(cfg.Storage.DataDir,
		sqlite.WithCacheTTL(cfg.Storage.CacheTTL()))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	closers = append(closers, store.Close)

	chunker, err := chunking.New(domain.ChunkingStrategy(cfg.Chunking.Strategy), chunking.Config{
		ChunkSize:   cfg.Chunking.ChunkSize,
		OverlapSize: cfg.Chunking.OverlapSize,
	})
	if err != nil {
		return err
	}

	embedder, err := ai.CreateEmbeddingService(cfg.AI.EmbeddingSettings())
	if err != nil {
		return fmt.Errorf("creating embedding service: %w", err)
	}
	if embedder != nil {
		closers = append(closers, embedder.Close)
	}

	completion, err := ai.CreateCompletionService(cfg.AI.CompletionSettings())
	if err != nil {
		return fmt.Errorf("creating completion service: %w", err)
	}
	if completion != nil {
		closers = append(closers, completion.Close)
	}

	indexer = services.NewIndexingService(chunker, embedder,
		store.EmbeddingCache(), store.VectorStore(), services.IndexerConfig{
			BatchWidth:     cfg.Indexing.BatchWidth,
			MaxRetries:     cfg.Indexing.MaxRetries,
			RetryBaseDelay: cfg.Indexing.RetryBaseDelay(),
			CallTimeout:    cfg.Indexing.CallTimeout(),
		})
	queryService = services.NewQueryService(embedder, store.VectorStore(), completion)
	return nil
}

func closeResources() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("Close failed: %v", err)
		}
	}
	closers = nil
}
