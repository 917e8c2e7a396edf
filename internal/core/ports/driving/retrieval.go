package driving

import (
	"context"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

// Retriever executes similarity search and retrieval-augmented answering.
type Retriever interface {
	// Search returns the k nearest fragments, ascending by score, with the
	// scope filter applied after similarity search.
	Search(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error)

	// SearchByThreshold returns all fragments scoring strictly below the
	// threshold, ascending, bounded by the candidate cap.
	SearchByThreshold(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error)

	// Ask retrieves context for the query and generates an answer, feeding
	// the session's bounded history to the model and recording the
	// completed turn. A nil onToken disables streaming.
	Ask(ctx context.Context, history *domain.History, query string, opts domain.RetrievalOptions, onToken func(string)) (*domain.AskResult, error)
}

// TagSearcher matches queries against the harvested tag vocabulary.
type TagSearcher interface {
	// SearchByTag matches the query against the tag vocabulary and returns
	// fragments for the matched tags. Empty queries are a validation error.
	SearchByTag(ctx context.Context, query string, topkTags, limitPerTag int) (*domain.TagSearchResult, error)
}
