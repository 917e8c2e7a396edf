package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

var (
	tagsTopK     int
	tagsPerTag   int
	tagsUseLLM   bool
	tagsJSONFlag bool
)

var tagsCmd = &cobra.Command{
	Use:   "tags [query]",
	Short: "Search fragments by tag vocabulary",
	Long: `Matches the query against the corpus tag vocabulary using tiered
matching (exact, then prefix, then substring) and lists the fragments
carrying the matched tags. With --llm, a language model re-ranks the
vocabulary before matching.`,
	Args: cobra.ExactArgs(1),
	RunE: runTags,
}

func init() {
	tagsCmd.Flags().IntVar(&tagsTopK, "topk", 0, "maximum number of tags to match (0 = default)")
	tagsCmd.Flags().IntVar(&tagsPerTag, "limit-per-tag", 0, "maximum fragments per matched tag (0 = default)")
	tagsCmd.Flags().BoolVar(&tagsUseLLM, "llm", false, "re-rank the tag vocabulary with the configured LLM")
	tagsCmd.Flags().BoolVar(&tagsJSONFlag, "json", false, "output results as JSON")
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, args []string) error {
	svc := tagSearcher
	if tagsUseLLM {
		if tagSearcherLLM == nil {
			return errors.New("LLM tag ranking not configured; run 'quarry config' to set an LLM provider")
		}
		svc = tagSearcherLLM
	}
	if svc == nil {
		return errors.New("tag search not configured")
	}

	result, err := svc.SearchByTag(cmd.Context(), args[0], tagsTopK, tagsPerTag)
	if err != nil {
		return fmt.Errorf("tag search failed: %w", err)
	}

	if tagsJSONFlag {
		data, merr := json.MarshalIndent(result, "", "  ")
		if merr != nil {
			return fmt.Errorf("failed to marshal result: %w", merr)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputTagsTable(cmd, result)
}

func outputTagsTable(cmd *cobra.Command, result *domain.TagSearchResult) error {
	if len(result.MatchedTags) == 0 {
		if result.Message != "" {
			cmd.Println(result.Message)
		} else {
			cmd.Println("No matching tags.")
		}
		return nil
	}

	cmd.Printf("Matched tags: %s\n", strings.Join(result.MatchedTags, ", "))
	cmd.Println()

	if len(result.Fragments) == 0 {
		cmd.Println("No fragments carry the matched tags.")
		return nil
	}

	for i := range result.Fragments {
		frag := &result.Fragments[i]
		title := fragMetaString(frag, "title")
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("  [%d] %s #%d [%s]\n", i+1, title, frag.Ordinal, strings.Join(frag.Tags, ", "))
		cmd.Printf("      %s\n", truncateLine(frag.Content, 160))
	}
	return nil
}
