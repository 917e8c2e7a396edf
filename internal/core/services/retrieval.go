package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quarry-cli/internal/logger"
)

// Ensure RetrievalService implements the interfaces.
var (
	_ driving.Retriever       = (*RetrievalService)(nil)
	_ driven.PromptStoreAware = (*RetrievalService)(nil)
)

// Snippet budgets for answer context and source listings.
const (
	contextSnippetChars = 800
	sourceSnippetChars  = 240
	fallbackTopN        = 3
)

// defaultAnswerSystemPrompt is the fallback policy when no PromptStore is
// configured.
const defaultAnswerSystemPrompt = `You answer questions using only the provided knowledge fragments.
Cite fragments by their bracketed labels, e.g. [2|manual#4].
If the fragments do not contain the answer, say so plainly instead of guessing.`

// RetrievalService executes similarity search and grounded answering.
// The LLM is optional; without it Ask is unavailable but Search works.
type RetrievalService struct {
	ledger      driven.Ledger
	embedder    driven.EmbeddingService
	index       driven.VectorIndex
	llm         driven.LLMService
	promptStore driven.PromptStore
}

// NewRetrievalService creates the retrieval service. llm may be nil.
func NewRetrievalService(
	ledger driven.Ledger,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	llm driven.LLMService,
) *RetrievalService {
	return &RetrievalService{
		ledger:   ledger,
		embedder: embedder,
		index:    index,
		llm:      llm,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *RetrievalService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Search returns the k nearest fragments ascending by score. The scope
// filter runs after similarity search; when it starves the result below k,
// the search retries once with a doubled candidate pool.
func (s *RetrievalService) Search(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error) {
	opts = opts.WithDefaults()

	queryVec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.searchOnce(ctx, queryVec, opts.K, opts.ScopeID)
	if err != nil {
		return nil, err
	}

	// One retry with a doubled pool when scoping starved the results.
	if len(results) < opts.K && opts.ScopeID != domain.UnscopedKB {
		logger.Debug("Scope %q kept %d/%d results, retrying with pool %d",
			opts.ScopeID, len(results), opts.K, 2*opts.K)
		results, err = s.searchOnce(ctx, queryVec, 2*opts.K, opts.ScopeID)
		if err != nil {
			return nil, err
		}
	}

	if len(results) > opts.K {
		results = results[:opts.K]
	}
	return results, nil
}

// SearchByThreshold returns fragments scoring strictly below the threshold,
// ascending, from a pool bounded by KCap.
func (s *RetrievalService) SearchByThreshold(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.ScoredFragment, error) {
	opts = opts.WithDefaults()

	queryVec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	pool, err := s.searchOnce(ctx, queryVec, opts.KCap, opts.ScopeID)
	if err != nil {
		return nil, err
	}

	var kept []domain.ScoredFragment
	for _, r := range pool {
		if r.Score < opts.Threshold {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// Ask retrieves context and generates a grounded answer. When the threshold
// admits nothing the top few candidates are used anyway so the model can say
// what the corpus almost contains.
func (s *RetrievalService) Ask(
	ctx context.Context,
	history *domain.History,
	query string,
	opts domain.RetrievalOptions,
	onToken func(string),
) (*domain.AskResult, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("ask: no generation service configured: %w", domain.ErrLLMUnavailable)
	}
	opts = opts.WithDefaults()

	frags, err := s.SearchByThreshold(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	if len(frags) == 0 {
		all, err := s.Search(ctx, query, domain.RetrievalOptions{
			K:       fallbackTopN,
			ScopeID: opts.ScopeID,
		})
		if err != nil {
			return nil, err
		}
		frags = all
		logger.Debug("Threshold %.2f admitted nothing, falling back to top %d", opts.Threshold, len(frags))
	}

	messages := []driven.ChatMessage{
		{Role: "system", Content: s.answerSystemPrompt()},
		{Role: "user", Content: buildUserMessage(history, query, frags)},
	}

	var answer string
	chatOpts := driven.ChatOptions{}
	if onToken != nil {
		answer, err = s.llm.ChatStream(ctx, messages, chatOpts, onToken)
	} else {
		answer, err = s.llm.Chat(ctx, messages, chatOpts)
	}
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	if history != nil {
		history.Append(query, answer)
	}

	return &domain.AskResult{
		Answer:  answer,
		Sources: buildSources(frags),
	}, nil
}

// embedQuery validates and embeds the query text.
func (s *RetrievalService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search: empty query: %w", domain.ErrInvalidInput)
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

// searchOnce runs one index search and hydrates the hits from the ledger,
// applying the scope filter. Orphaned index entries are skipped.
func (s *RetrievalService) searchOnce(ctx context.Context, queryVec []float32, k int, scopeID string) ([]domain.ScoredFragment, error) {
	hits, err := s.index.Search(ctx, queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	results := make([]domain.ScoredFragment, 0, len(hits))
	for _, hit := range hits {
		frag, err := s.ledger.GetFragmentByVectorID(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("Index entry %d has no ledger fragment, skipping", hit.ID)
				continue
			}
			return nil, fmt.Errorf("hydrate fragment %d: %w", hit.ID, err)
		}
		if !inScope(frag, scopeID) {
			continue
		}
		results = append(results, domain.ScoredFragment{Fragment: *frag, Score: hit.Score})
	}
	return results, nil
}

// inScope applies the knowledge base filter.
func inScope(frag *domain.Fragment, scopeID string) bool {
	if scopeID == "" || scopeID == domain.UnscopedKB {
		return true
	}
	kb, _ := frag.Metadata["kb_id"].(string)
	return kb == scopeID
}

func (s *RetrievalService) answerSystemPrompt() string {
	if s.promptStore == nil {
		return defaultAnswerSystemPrompt
	}
	prompt, err := s.promptStore.Load(driven.PromptAnswerSystem)
	if err != nil {
		return defaultAnswerSystemPrompt
	}
	return prompt
}

// buildUserMessage assembles the prompt body: prior turns, numbered context
// blocks, then the question.
func buildUserMessage(history *domain.History, query string, frags []domain.ScoredFragment) string {
	var b strings.Builder

	b.WriteString("Conversation so far:\n")
	if history == nil {
		b.WriteString("(none)")
	} else {
		b.WriteString(history.Render())
	}

	b.WriteString("\n\nKnowledge fragments:\n")
	if len(frags) == 0 {
		b.WriteString("(none)")
	} else {
		for i, f := range frags {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "[%d|%s#%d]\n%s",
				i+1, fragmentTitle(&f.Fragment), f.Fragment.Ordinal,
				snippet(f.Fragment.Content, contextSnippetChars))
		}
	}

	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	return b.String()
}

// buildSources converts retrieved fragments into the externally visible
// source list, ascending by score.
func buildSources(frags []domain.ScoredFragment) []domain.Source {
	sources := make([]domain.Source, 0, len(frags))
	for _, f := range frags {
		path, _ := f.Fragment.Metadata["source"].(string)
		sources = append(sources, domain.Source{
			Title:   fragmentTitle(&f.Fragment),
			Path:    path,
			Ordinal: f.Fragment.Ordinal,
			Score:   f.Score,
			Snippet: snippet(f.Fragment.Content, sourceSnippetChars),
		})
	}
	sort.SliceStable(sources, func(i, j int) bool { return sources[i].Score < sources[j].Score })
	return sources
}

func fragmentTitle(frag *domain.Fragment) string {
	if title, ok := frag.Metadata["title"].(string); ok && title != "" {
		return title
	}
	return "untitled"
}

// snippet truncates content to limit characters with an ellipsis.
func snippet(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}
