// Command quarry is a local knowledge corpus with semantic retrieval.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/quarry-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driven/segmentation"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/quarry-cli/internal/chunking"
	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quarry-cli/internal/core/services"
	"github.com/custodia-labs/quarry-cli/internal/loaders"
	"github.com/custodia-labs/quarry-cli/internal/loaders/markdown"
	"github.com/custodia-labs/quarry-cli/internal/loaders/plaintext"
)

// version is overridden at build time via
// -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}

	promptStore, err := file.NewPromptStore("")
	if err != nil {
		warn("prompt store unavailable: %v", err)
		promptStore = nil
	}

	ledger, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer ledger.Close()

	registry := loaders.NewRegistry()
	registry.Register(plaintext.New())
	registry.Register(markdown.New())

	// Providers are best-effort: commands that need a missing provider
	// report it instead of the whole binary failing to start.
	embSettings := cli.EmbeddingSettingsFromConfig(configStore)
	llmSettings := cli.LLMSettingsFromConfig(configStore)

	embedder, err := ai.CreateEmbeddingService(&embSettings)
	if err != nil {
		warn("embedding provider unavailable: %v", err)
	}
	llm, err := ai.CreateLLMService(&llmSettings)
	if err != nil {
		warn("LLM provider unavailable: %v", err)
	}

	var index *flat.Index
	if embedder != nil {
		index, err = flat.Open(indexPath(), embedder.Dimensions())
		if err != nil {
			return fmt.Errorf("opening vector index: %w", err)
		}
		defer index.Close()
	}

	cascadeFor := makeCascadeFactory(llm, promptStore)

	svcs := &cli.Services{
		Ledger:         ledger,
		ConfigStore:    configStore,
		LoaderRegistry: registry,
		ValidateEmbedding: func(s *domain.EmbeddingSettings) error {
			_, verr := ai.CreateAndValidateEmbeddingService(s)
			return verr
		},
		ValidateLLM: func(s *domain.LLMSettings) error {
			_, verr := ai.CreateAndValidateLLMService(s)
			return verr
		},
	}

	svcs.TagSearcher = services.NewTagSearchService(ledger, nil, domain.TagRankDeterministic)
	if llm != nil {
		svcs.TagSearcherLLM = services.NewTagSearchService(ledger, llm, domain.TagRankLLM)
	}

	if embedder != nil && index != nil {
		retrieval := services.NewRetrievalService(ledger, embedder, index, llm)
		if promptStore != nil {
			retrieval.SetPromptStore(promptStore)
		}
		svcs.Retriever = retrieval

		svcs.IngestorFor = func(workers int, kb string) driving.Ingestor {
			return services.NewIngestService(registry, cascadeFor, ledger, embedder, index, services.IngestConfig{
				Workers: workers,
				ScopeID: kb,
			})
		}
		svcs.Ingestor = svcs.IngestorFor(0, "")

		// Reindex needs an empty index, so the current file is swapped
		// for a fresh one before rebuilding. Runs once per process.
		svcs.Reindexer = func(ctx context.Context) (*driving.IngestReport, error) {
			if err := index.Close(); err != nil {
				return nil, fmt.Errorf("closing index: %w", err)
			}
			if err := os.Remove(indexPath()); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("removing index file: %w", err)
			}
			fresh, err := flat.Open(indexPath(), embedder.Dimensions())
			if err != nil {
				return nil, fmt.Errorf("creating index: %w", err)
			}
			defer fresh.Close()

			rebuild := services.NewIngestService(registry, cascadeFor, ledger, embedder, fresh, services.IngestConfig{})
			return rebuild.Reindex(ctx)
		}
	}

	cli.SetVersion(version)
	cli.SetServices(svcs)
	return cli.Execute()
}

// makeCascadeFactory builds the chunking cascade: semantic when an LLM is
// available, then Q&A pattern, then fixed-size as the floor.
func makeCascadeFactory(llm driven.LLMService, promptStore driven.PromptStore) services.CascadeFactory {
	var segmenter *segmentation.Service
	if llm != nil {
		segmenter = segmentation.NewService(llm, segmentation.Config{})
		if promptStore != nil {
			segmenter.SetPromptStore(promptStore)
		}
	}

	return func(tagHints []string) *chunking.Cascade {
		strategies := make([]chunking.Strategy, 0, 3)
		if segmenter != nil {
			strategies = append(strategies, chunking.NewSemanticSplitter(segmenter, chunking.WithTagHints(tagHints)))
		}
		strategies = append(strategies,
			chunking.NewQASplitter(0, ""),
			chunking.NewFixedSplitter(0),
		)
		return chunking.NewCascade(strategies...)
	}
}

// indexPath is the vector index file next to the ledger.
func indexPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vectors.qvx"
	}
	return filepath.Join(home, ".quarry", "data", "vectors.qvx")
}

func warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}
