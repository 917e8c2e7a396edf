package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from the ledger",
	Long: `Replaces the vector index with a fresh one and re-embeds every
fragment recorded in the ledger. Use after deleting documents or after
changing the embedding model.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	if reindexer == nil {
		return errors.New("reindex not configured; run 'quarry config' to set an embedding provider")
	}

	cmd.Println("Rebuilding vector index...")
	report, err := reindexer(cmd.Context())
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	cmd.Printf("Reindexed %d fragments (%d vectors written, %d errors).\n",
		report.FragmentsEmitted, report.VectorsIndexed, report.Errors)
	return nil
}
