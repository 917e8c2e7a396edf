package cli

import (
	"context"
	"os"
	"strconv"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driving"
)

func intArg(id int64) string {
	return strconv.FormatInt(id, 10)
}

func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func writeTestDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

type mockRetriever struct {
	SearchFunc            func(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error)
	SearchByThresholdFunc func(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error)
	AskFunc               func(ctx context.Context, history *domain.History, query string, opts domain.RetrievalOptions, onToken func(string)) (*domain.AskResult, error)
}

func (m *mockRetriever) Search(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, opts)
	}
	return nil, nil
}

func (m *mockRetriever) SearchByThreshold(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error) {
	if m.SearchByThresholdFunc != nil {
		return m.SearchByThresholdFunc(ctx, query, opts)
	}
	return nil, nil
}

func (m *mockRetriever) Ask(ctx context.Context, history *domain.History, query string, opts domain.RetrievalOptions, onToken func(string)) (*domain.AskResult, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, history, query, opts, onToken)
	}
	return &domain.AskResult{Answer: "mock answer"}, nil
}

type mockTagSearcher struct {
	SearchByTagFunc func(ctx context.Context, query string, topkTags, limitPerTag int) (*domain.TagSearchResult, error)
}

func (m *mockTagSearcher) SearchByTag(ctx context.Context, query string, topkTags, limitPerTag int) (*domain.TagSearchResult, error) {
	if m.SearchByTagFunc != nil {
		return m.SearchByTagFunc(ctx, query, topkTags, limitPerTag)
	}
	return &domain.TagSearchResult{Query: query}, nil
}

type mockIngestor struct {
	IngestFileFunc  func(ctx context.Context, path string) (*driving.IngestReport, error)
	IngestBatchFunc func(ctx context.Context, paths []string) (*driving.IngestReport, error)
	ReindexFunc     func(ctx context.Context) (*driving.IngestReport, error)
}

func (m *mockIngestor) IngestFile(ctx context.Context, path string) (*driving.IngestReport, error) {
	if m.IngestFileFunc != nil {
		return m.IngestFileFunc(ctx, path)
	}
	return &driving.IngestReport{DocumentsProcessed: 1}, nil
}

func (m *mockIngestor) IngestBatch(ctx context.Context, paths []string) (*driving.IngestReport, error) {
	if m.IngestBatchFunc != nil {
		return m.IngestBatchFunc(ctx, paths)
	}
	return &driving.IngestReport{DocumentsProcessed: len(paths)}, nil
}

func (m *mockIngestor) Reindex(ctx context.Context) (*driving.IngestReport, error) {
	if m.ReindexFunc != nil {
		return m.ReindexFunc(ctx)
	}
	return &driving.IngestReport{}, nil
}

// swapServices installs the given services and returns a cleanup that
// restores the previous ones.
func swapServices(s *Services) func() {
	prev := &Services{
		Ingestor:          ingestor,
		Retriever:         retriever,
		TagSearcher:       tagSearcher,
		TagSearcherLLM:    tagSearcherLLM,
		Ledger:            ledger,
		ConfigStore:       configStore,
		LoaderRegistry:    loaderRegistry,
		IngestorFor:       ingestorFor,
		Reindexer:         reindexer,
		ValidateEmbedding: validateEmbedding,
		ValidateLLM:       validateLLM,
	}
	SetServices(s)
	return func() { SetServices(prev) }
}

func sampleScoredFragments() []domain.ScoredFragment {
	return []domain.ScoredFragment{
		{
			Fragment: domain.Fragment{
				ID:       1,
				Ordinal:  0,
				Content:  "Raft elects a single leader per term.",
				Tags:     []string{"consensus"},
				Metadata: map[string]any{"title": "Consensus Notes", "source": "/docs/consensus.md"},
			},
			Score: 0.12,
		},
		{
			Fragment: domain.Fragment{
				ID:       2,
				Ordinal:  3,
				Content:  "Followers grant votes at most once per term.",
				Tags:     []string{"consensus", "voting"},
				Metadata: map[string]any{"title": "Consensus Notes", "source": "/docs/consensus.md"},
			},
			Score: 0.31,
		},
	}
}
