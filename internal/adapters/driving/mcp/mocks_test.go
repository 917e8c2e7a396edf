package mcp

import (
	"context"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

// mockRetriever implements driving.Retriever for tests.
type mockRetriever struct {
	results   []domain.ScoredFragment
	askResult *domain.AskResult
	err       error

	lastQuery string
	lastOpts  domain.RetrievalOptions
}

func (m *mockRetriever) Search(_ context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockRetriever) SearchByThreshold(_ context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockRetriever) Ask(_ context.Context, history *domain.History, query string, opts domain.RetrievalOptions, _ func(string)) (*domain.AskResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if history != nil && m.askResult != nil {
		history.Append(query, m.askResult.Answer)
	}
	return m.askResult, nil
}

// mockTagSearcher implements driving.TagSearcher for tests.
type mockTagSearcher struct {
	result *domain.TagSearchResult
	err    error
}

func (m *mockTagSearcher) SearchByTag(context.Context, string, int, int) (*domain.TagSearchResult, error) {
	return m.result, m.err
}
