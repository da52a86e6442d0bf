package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui"
	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui/messages"
	"github.com/cisbeo/scorpius-rag/internal/config"
	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

var (
	queryStrategy    string
	queryTopK        int
	queryThreshold   float64
	queryDocumentID  string
	queryDocType     string
	queryJSON        bool
	queryInteractive bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Retrieves the most relevant chunks and, when a completion backend is
configured, synthesises a French answer with source citations.

With --interactive, a terminal UI reads questions in a loop and the
query settings in the config file are reloaded live on change.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryStrategy, "strategy", "", "query strategy: simple, subquestion, router, auto")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "n", 0, "number of chunks to retrieve")
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", -1, "minimum similarity in [0, 1)")
	queryCmd.Flags().StringVar(&queryDocumentID, "document", "", "restrict to one document")
	queryCmd.Flags().StringVar(&queryDocType, "type", "", "restrict to one document family")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the result as JSON")
	queryCmd.Flags().BoolVarP(&queryInteractive, "interactive", "i", false, "read questions from stdin")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	if queryInteractive {
		return runInteractive(cmd)
	}
	if len(args) == 0 {
		return fmt.Errorf("a question is required unless --interactive is set")
	}
	return askOnce(cmd, args[0], queryOptions(cfg.Query))
}

// queryOptions merges the config-file tunables with the flag overrides.
func queryOptions(qc config.QueryConfig) domain.QueryOptions {
	opts := domain.QueryOptions{
		TopK:      qc.TopK,
		Threshold: qc.Threshold,
		Strategy:  domain.QueryStrategy(qc.Strategy),
		Filter: domain.Filter{
			DocumentID:   queryDocumentID,
			DocumentType: queryDocType,
		},
	}
	if queryTopK > 0 {
		opts.TopK = queryTopK
	}
	if queryThreshold >= 0 {
		opts.Threshold = queryThreshold
	}
	if queryStrategy != "" {
		opts.Strategy = domain.QueryStrategy(queryStrategy)
	}
	return opts
}

func askOnce(cmd *cobra.Command, question string, opts domain.QueryOptions) error {
	result, err := queryService.Query(context.Background(), question, opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if queryJSON {
		return printJSON(cmd, result)
	}
	printResult(cmd, result)
	return nil
}

// runInteractive runs the question loop as a Bubbletea program. The query
// section of the config file is watched; on change the fresh settings are
// sent into the running program as a message.
func runInteractive(cmd *cobra.Command) error {
	app := tui.NewApp(queryService, queryOptions(cfg.Query))
	if ctx := cmd.Context(); ctx != nil {
		app.WithContext(ctx)
	}

	program := tea.NewProgram(app, tea.WithAltScreen())

	watcher, err := config.Watch(cfgPath, func(c config.Config) {
		program.Send(messages.SettingsReloaded{Options: queryOptions(c.Query)})
	})
	if err == nil {
		defer watcher.Close()
	} else {
		cmd.PrintErrf("Config watching disabled: %v\n", err)
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("interactive session failed: %w", err)
	}
	return nil
}

func printJSON(cmd *cobra.Command, result *domain.QueryResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printResult(cmd *cobra.Command, result *domain.QueryResult) {
	if result.Answer != "" {
		cmd.Println(result.Answer)
		cmd.Println()
	}

	if len(result.Chunks) == 0 {
		if result.Answer == "" {
			cmd.Println("No relevant chunks found.")
		}
		return
	}

	cmd.Println("Sources:")
	for i, rc := range result.Chunks {
		tag := fmt.Sprintf("%.2f", rc.Score)
		if rc.Lexical {
			tag = "exact match"
		}
		cmd.Printf("  [%d] %s (%s)\n", i+1, rc.Chunk.DocumentID, tag)
		if rc.Chunk.SectionType != "" {
			cmd.Printf("      Section: %s\n", rc.Chunk.SectionType)
		}
		cmd.Printf("      %s\n", snippet(rc.Chunk.Text))
	}

	if len(result.SubQuestions) > 0 {
		cmd.Println()
		cmd.Println("Sub-questions:")
		for i, sub := range result.SubQuestions {
			cmd.Printf("  %d. %s\n", i+1, sub)
		}
	}
}

// snippet trims a chunk to one output line.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= 120 {
		return text
	}
	return string(runes[:120]) + "..."
}
