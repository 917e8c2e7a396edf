package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns retrieved fragments", func(t *testing.T) {
		retriever := &mockRetriever{
			results: []domain.ScoredFragment{
				{
					Fragment: domain.Fragment{
						Ordinal: 2,
						Content: "This is the content",
						Tags:    []string{"testing"},
						Metadata: map[string]any{
							"title":  "Test Doc",
							"source": "/path/to/doc.md",
						},
					},
					Score: 0.42,
				},
			},
		}

		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test", Limit: 10})
		require.NoError(t, err)

		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "Test Doc", output.Results[0].Title)
		assert.Equal(t, "/path/to/doc.md", output.Results[0].Path)
		assert.Equal(t, 2, output.Results[0].Ordinal)
		assert.Equal(t, 0.42, output.Results[0].Score)
		assert.Equal(t, "This is the content", output.Results[0].Content)
	})

	t.Run("passes scope and limit through", func(t *testing.T) {
		retriever := &mockRetriever{}
		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "q", Limit: 4, KB: "handbook"})
		require.NoError(t, err)

		assert.Equal(t, 4, retriever.lastOpts.K)
		assert.Equal(t, "handbook", retriever.lastOpts.ScopeID)
	})

	t.Run("propagates errors", func(t *testing.T) {
		retriever := &mockRetriever{err: errors.New("index offline")}
		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "q"})
		assert.Error(t, err)
	})
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("answers and keeps the session", func(t *testing.T) {
		retriever := &mockRetriever{
			askResult: &domain.AskResult{
				Answer:  "the answer",
				Sources: []domain.Source{{Title: "Doc", Ordinal: 1, Score: 0.3}},
			},
		}
		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "why"})
		require.NoError(t, err)

		assert.Equal(t, "the answer", output.Answer)
		require.NotEmpty(t, output.SessionID)
		require.Len(t, output.Sources, 1)

		// A follow-up with the returned session ID reuses the history.
		history, err := server.sessions.Get(output.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 1, history.Len())

		_, again, err := server.handleAsk(ctx, nil, AskInput{Question: "and then", SessionID: output.SessionID})
		require.NoError(t, err)
		assert.Equal(t, output.SessionID, again.SessionID)
		assert.Equal(t, 2, history.Len())
	})

	t.Run("propagates errors", func(t *testing.T) {
		retriever := &mockRetriever{err: errors.New("no llm")}
		server, err := NewServer(&Ports{Retriever: retriever})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "why"})
		assert.Error(t, err)
	})
}

func TestServer_handleTagSearch(t *testing.T) {
	ctx := context.Background()

	tagSearcher := &mockTagSearcher{
		result: &domain.TagSearchResult{
			Query:       "networking",
			MatchedTags: []string{"networking"},
			Fragments: []domain.Fragment{
				{Ordinal: 0, Content: "About sockets", Tags: []string{"networking"}},
			},
		},
	}

	server, err := NewServer(&Ports{Retriever: &mockRetriever{}, TagSearcher: tagSearcher})
	require.NoError(t, err)

	_, output, err := server.handleTagSearch(ctx, nil, TagSearchInput{Query: "networking"})
	require.NoError(t, err)

	assert.Equal(t, []string{"networking"}, output.MatchedTags)
	require.Len(t, output.Fragments, 1)
	assert.Equal(t, "About sockets", output.Fragments[0].Content)
}

func TestNewServerRequiresRetriever(t *testing.T) {
	_, err := NewServer(&Ports{})
	assert.ErrorIs(t, err, ErrMissingRetriever)
}
