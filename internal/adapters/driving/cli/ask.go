package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

var (
	askKB        string
	askThreshold float64
	askStream    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question grounded in the corpus",
	Long: `Retrieves relevant fragments and asks the configured LLM for a
grounded answer. Without an argument, starts an interactive session
where the conversation history carries across turns.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askKB, "kb", "", "restrict retrieval to one knowledge base")
	askCmd.Flags().Float64VarP(&askThreshold, "threshold", "t", 0, "distance cutoff for retrieval")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print answer tokens as they arrive")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if retriever == nil {
		return errors.New("ask not configured; run 'quarry config' to set embedding and LLM providers")
	}

	history := domain.NewHistory(domain.DefaultHistoryTurns)
	opts := domain.RetrievalOptions{
		Threshold: askThreshold,
		ScopeID:   askKB,
	}

	if len(args) == 1 {
		return askOnce(cmd, history, args[0], opts)
	}
	return askLoop(cmd, history, opts)
}

func askOnce(cmd *cobra.Command, history *domain.History, question string, opts domain.RetrievalOptions) error {
	ctx := cmd.Context()

	var onToken func(string)
	if askStream {
		onToken = func(token string) { cmd.Printf("%s", token) }
	}

	result, err := retriever.Ask(ctx, history, question, opts, onToken)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askStream {
		cmd.Println()
	} else {
		cmd.Println(result.Answer)
	}
	printSources(cmd, result.Sources)
	return nil
}

func askLoop(cmd *cobra.Command, history *domain.History, opts domain.RetrievalOptions) error {
	cmd.Println("Interactive session. Type a question, or 'exit' to quit.")
	cmd.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		cmd.Printf("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			cmd.Println()
			return nil
		}

		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return nil
		}

		if err := askOnce(cmd, history, question, opts); err != nil {
			cmd.Printf("Error: %v\n", err)
		}
		cmd.Println()
	}
}

func printSources(cmd *cobra.Command, sources []domain.Source) {
	if len(sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, src := range sources {
		title := src.Title
		if title == "" {
			title = src.Path
		}
		cmd.Printf("  [%d] %s #%d (%.3f)\n", i+1, title, src.Ordinal, src.Score)
	}
}
