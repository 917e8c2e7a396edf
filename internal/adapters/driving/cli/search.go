package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

var (
	searchK         int
	searchThreshold float64
	searchKB        string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the corpus by similarity",
	Long: `Performs vector similarity search over the ingested fragments.
With --threshold, returns every fragment scoring strictly below the
distance cutoff instead of a fixed number of results.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "limit", "n", 0, "maximum number of results")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", 0, "distance cutoff (0 = fixed-k search)")
	searchCmd.Flags().StringVar(&searchKB, "kb", "", "restrict to one knowledge base")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if retriever == nil {
		return errors.New("retrieval not configured; run 'quarry config' to set an embedding provider")
	}

	ctx := cmd.Context()
	opts := domain.RetrievalOptions{
		K:         searchK,
		Threshold: searchThreshold,
		ScopeID:   searchKB,
	}

	var (
		results []domain.ScoredFragment
		err     error
	)
	if searchThreshold > 0 {
		results, err = retriever.SearchByThreshold(ctx, query, opts)
	} else {
		results, err = retriever.Search(ctx, query, opts)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

// searchResultJSON is the JSON shape of one search result.
type searchResultJSON struct {
	Title   string   `json:"title"`
	Path    string   `json:"path"`
	Ordinal int      `json:"ordinal"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags,omitempty"`
	Content string   `json:"content"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.ScoredFragment) error {
	out := make([]searchResultJSON, 0, len(results))
	for i := range results {
		frag := &results[i].Fragment
		out = append(out, searchResultJSON{
			Title:   fragMetaString(frag, "title"),
			Path:    fragMetaString(frag, "source"),
			Ordinal: frag.Ordinal,
			Score:   results[i].Score,
			Tags:    frag.Tags,
			Content: frag.Content,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredFragment) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		frag := &results[i].Fragment

		title := fragMetaString(frag, "title")
		if title == "" {
			title = "(untitled)"
		}

		cmd.Printf("  [%d] %s #%d (%.3f)\n", i+1, title, frag.Ordinal, results[i].Score)
		if source := fragMetaString(frag, "source"); source != "" {
			cmd.Printf("      Source: %s\n", source)
		}
		cmd.Printf("      %s\n", truncateLine(frag.Content, 160))
		cmd.Println()
	}

	return nil
}

// fragMetaString reads a string metadata value from a fragment.
func fragMetaString(frag *domain.Fragment, key string) string {
	if frag.Metadata == nil {
		return ""
	}
	if v, ok := frag.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// truncateLine flattens newlines and bounds the text for table output.
func truncateLine(text string, maxRunes int) string {
	flat := make([]rune, 0, len(text))
	for _, r := range text {
		if r == '\n' {
			r = ' '
		}
		flat = append(flat, r)
	}
	if len(flat) <= maxRunes {
		return string(flat)
	}
	return string(flat[:maxRunes]) + "..."
}
