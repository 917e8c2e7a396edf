// Package cli provides the quarry command line interface.
// Commands are thin shells over the core services; wiring happens in main.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quarry-cli/internal/loaders"
	"github.com/custodia-labs/quarry-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "0.1.0"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Local knowledge corpus with semantic retrieval",
	Long: `Quarry ingests local documents into a deduplicated knowledge corpus
and answers questions over it with retrieval-augmented generation.

Documents are chunked by a tiered cascade (semantic, Q&A, fixed), stored
in a content-hash deduplicated ledger, and indexed in an append-only
vector index for similarity search.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

// Package-level services, injected by SetServices before Execute.
var (
	ingestor       driving.Ingestor
	retriever      driving.Retriever
	tagSearcher    driving.TagSearcher
	tagSearcherLLM driving.TagSearcher
	ledger         driven.Ledger
	configStore    driven.ConfigStore
	loaderRegistry *loaders.Registry
	ingestorFor    func(workers int, kb string) driving.Ingestor
	reindexer      func(ctx context.Context) (*driving.IngestReport, error)

	validateEmbedding func(*domain.EmbeddingSettings) error
	validateLLM       func(*domain.LLMSettings) error
)

// Services aggregates everything the commands need.
// Optional fields may be nil; commands report a helpful error when a
// required service is missing.
type Services struct {
	Ingestor       driving.Ingestor
	Retriever      driving.Retriever
	TagSearcher    driving.TagSearcher
	TagSearcherLLM driving.TagSearcher
	Ledger         driven.Ledger
	ConfigStore    driven.ConfigStore
	LoaderRegistry *loaders.Registry

	// IngestorFor builds an ingestor with per-run worker and knowledge
	// base settings. Falls back to Ingestor when nil.
	IngestorFor func(workers int, kb string) driving.Ingestor

	// Reindexer replaces the vector index file with a fresh one and
	// rebuilds it from the ledger.
	Reindexer func(ctx context.Context) (*driving.IngestReport, error)

	// ValidateEmbedding and ValidateLLM ping the configured providers.
	ValidateEmbedding func(*domain.EmbeddingSettings) error
	ValidateLLM       func(*domain.LLMSettings) error
}

// SetServices injects the services used by the commands.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	ingestor = s.Ingestor
	retriever = s.Retriever
	tagSearcher = s.TagSearcher
	tagSearcherLLM = s.TagSearcherLLM
	ledger = s.Ledger
	configStore = s.ConfigStore
	loaderRegistry = s.LoaderRegistry
	ingestorFor = s.IngestorFor
	reindexer = s.Reindexer
	validateEmbedding = s.ValidateEmbedding
	validateLLM = s.ValidateLLM
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
