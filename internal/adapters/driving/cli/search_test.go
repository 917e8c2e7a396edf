package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_ErrorsWithoutRetriever(t *testing.T) {
	cleanup := swapServices(&Services{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "anything"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	var gotQuery string
	cleanup := swapServices(&Services{
		Retriever: &mockRetriever{
			SearchFunc: func(_ context.Context, query string, _ domain.RetrievalOptions) ([]domain.ScoredFragment, error) {
				gotQuery = query
				return sampleScoredFragments(), nil
			},
		},
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "raft leader election"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, "raft leader election", gotQuery)
	assert.Contains(t, buf.String(), "Results:")
	assert.Contains(t, buf.String(), "Consensus Notes #0 (0.120)")
	assert.Contains(t, buf.String(), "/docs/consensus.md")
}

func TestSearchCmd_LimitFlagReachesOptions(t *testing.T) {
	var gotOpts domain.RetrievalOptions
	cleanup := swapServices(&Services{
		Retriever: &mockRetriever{
			SearchFunc: func(_ context.Context, _ string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error) {
				gotOpts = opts
				return nil, nil
			},
		},
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "-n", "3", "--kb", "handbook", "query"})
	defer func() {
		rootCmd.SetArgs(nil)
		searchK = 0
		searchKB = ""
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, 3, gotOpts.K)
	assert.Equal(t, "handbook", gotOpts.ScopeID)
}

func TestSearchCmd_ThresholdSelectsThresholdSearch(t *testing.T) {
	var usedThreshold bool
	cleanup := swapServices(&Services{
		Retriever: &mockRetriever{
			SearchByThresholdFunc: func(_ context.Context, _ string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error) {
				usedThreshold = true
				assert.InDelta(t, 0.4, opts.Threshold, 1e-9)
				return nil, nil
			},
		},
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "--threshold", "0.4", "query"})
	defer func() {
		rootCmd.SetArgs(nil)
		searchThreshold = 0
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.True(t, usedThreshold)
	assert.Contains(t, buf.String(), "No results found.")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	cleanup := swapServices(&Services{
		Retriever: &mockRetriever{
			SearchFunc: func(_ context.Context, _ string, _ domain.RetrievalOptions) ([]domain.ScoredFragment, error) {
				return sampleScoredFragments(), nil
			},
		},
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "--json", "query"})
	defer func() {
		rootCmd.SetArgs(nil)
		searchJSON = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\"title\": \"Consensus Notes\"")
	assert.Contains(t, buf.String(), "\"score\": 0.12")
}
