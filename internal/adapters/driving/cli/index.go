package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

var indexDocType string

var indexCmd = &cobra.Command{
	Use:   "index [document-id] [file]",
	Short: "Chunk, embed and store a document",
	Long: `Splits the text file into chunks, embeds them and stores them under
the given document id. Re-running on unchanged text reuses cached
embeddings and makes no new API calls.`,
	Args: cobra.ExactArgs(2),
	RunE: runIndex,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Remove a document's chunks and cached embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	indexCmd.Flags().StringVar(&indexDocType, "type", "", "document family (CCTP, CCAP, RC...)")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	documentID, path := args[0], args[1]
	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	report, err := indexer.IndexDocument(context.Background(), domain.DocumentInput{
		DocumentID:   documentID,
		Text:         string(text),
		DocumentType: indexDocType,
	})

	var partial *domain.PartialIndexingError
	if err != nil && !errors.As(err, &partial) {
		return fmt.Errorf("indexing failed: %w", err)
	}

	cmd.Printf("Indexed %s in %s\n", report.DocumentID, report.Duration.Round(time.Millisecond))
	cmd.Printf("  created: %d\n", report.ChunksCreated)
	cmd.Printf("  reused:  %d\n", report.ChunksReused)
	if report.ChunksRemoved > 0 {
		cmd.Printf("  removed: %d\n", report.ChunksRemoved)
	}
	if partial != nil {
		cmd.Printf("  failed:  %d (re-run to complete)\n", report.ChunksFailed)
		return partial
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	documentID := args[0]
	if err := indexer.DeleteDocument(context.Background(), documentID); err != nil {
		return fmt.Errorf("deleting %s: %w", documentID, err)
	}
	cmd.Printf("Deleted document %s\n", documentID)
	return nil
}
