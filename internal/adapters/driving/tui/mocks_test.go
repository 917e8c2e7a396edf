package tui

import (
	"context"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

// mockRetriever implements driving.Retriever for testing.
type mockRetriever struct {
	SearchFunc func(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error)
	AskFunc    func(ctx context.Context, history *domain.History, query string, opts domain.RetrievalOptions, onToken func(string)) (*domain.AskResult, error)
}

func (m *mockRetriever) Search(
	ctx context.Context,
	query string,
	opts domain.RetrievalOptions,
) ([]domain.ScoredFragment, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, opts)
	}
	return []domain.ScoredFragment{}, nil
}

func (m *mockRetriever) SearchByThreshold(
	ctx context.Context,
	query string,
	opts domain.RetrievalOptions,
) ([]domain.ScoredFragment, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, opts)
	}
	return []domain.ScoredFragment{}, nil
}

func (m *mockRetriever) Ask(
	ctx context.Context,
	history *domain.History,
	query string,
	opts domain.RetrievalOptions,
	onToken func(string),
) (*domain.AskResult, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, history, query, opts, onToken)
	}
	return &domain.AskResult{}, nil
}
