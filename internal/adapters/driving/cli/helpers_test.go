package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	cachemem "github.com/cisbeo/scorpius-rag/internal/adapters/driven/cache/memory"
	storemem "github.com/cisbeo/scorpius-rag/internal/adapters/driven/storage/memory"
	"github.com/cisbeo/scorpius-rag/internal/chunking"
	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/services"
)

// fixedEmbedder maps every text to the same vector, which is enough for
// exercising the command plumbing end to end without a network.
type fixedEmbedder struct{}

func (fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (e fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = e.Embed(ctx, texts[i])
	}
	return out, nil
}

func (fixedEmbedder) Dimensions() int            { return 2 }
func (fixedEmbedder) ModelName() string          { return "mistral-embed" }
func (fixedEmbedder) Ping(context.Context) error { return nil }
func (fixedEmbedder) Close() error               { return nil }

// setupTestServices wires the command tree to in-memory services and
// returns a cleanup restoring the package state.
func setupTestServices(t *testing.T) func() {
	t.Helper()

	chunker, err := chunking.New(domain.StrategyFixedSize, chunking.DefaultConfig())
	require.NoError(t, err)

	store := storemem.New()
	indexer = services.NewIndexingService(chunker, fixedEmbedder{}, cachemem.New(), store,
		services.IndexerConfig{})
	queryService = services.NewQueryService(fixedEmbedder{}, store, nil)

	return func() {
		indexer = nil
		queryService = nil
		indexDocType = ""
		queryStrategy = ""
		queryTopK = 0
		queryThreshold = -1
		queryDocumentID = ""
		queryDocType = ""
		queryJSON = false
		queryInteractive = false
	}
}

// runCommand executes the root command with args and captures the output.
func runCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// writeTestDocument writes a small document file and returns its path.
func writeTestDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cctp.txt")
	require.NoError(t, os.WriteFile(path,
		[]byte("Article 1. Le délai de réponse est de 30 jours."), 0600))
	return path
}
