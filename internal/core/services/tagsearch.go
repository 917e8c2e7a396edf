package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quarry-cli/internal/logger"
)

var (
	_ driving.TagSearcher     = (*TagSearchService)(nil)
	_ driven.PromptStoreAware = (*TagSearchService)(nil)
)

// Defaults for tag search bounds.
const (
	DefaultTopkTags    = 3
	DefaultLimitPerTag = 5
)

// defaultTagRankPrompt is the fallback template for LLM tag ranking. It
// expects the query and the newline-joined vocabulary.
const defaultTagRankPrompt = `Pick the tags most relevant to the question, best match first.
Choose ONLY from the available tags; never invent new ones.
Return one tag per line, nothing else.

Question: %s
Available tags: %s`

// TagSearchService matches queries against the harvested tag vocabulary and
// returns fragments carrying the matched tags. Matching is deterministic by
// default; an LLM can re-rank candidates when configured.
type TagSearchService struct {
	ledger      driven.Ledger
	llm         driven.LLMService
	mode        domain.TagRankMode
	promptStore driven.PromptStore
}

// NewTagSearchService creates the tag search service. llm may be nil, in
// which case the mode is forced to deterministic.
func NewTagSearchService(ledger driven.Ledger, llm driven.LLMService, mode domain.TagRankMode) *TagSearchService {
	if !mode.IsValid() {
		mode = domain.TagRankDeterministic
	}
	if llm == nil {
		mode = domain.TagRankDeterministic
	}
	return &TagSearchService{
		ledger: ledger,
		llm:    llm,
		mode:   mode,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *TagSearchService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// SearchByTag matches the query against the tag vocabulary and returns
// fragments for the matched tags, deduplicated across tags.
func (s *TagSearchService) SearchByTag(ctx context.Context, query string, topkTags, limitPerTag int) (*domain.TagSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("tag search: empty query: %w", domain.ErrInvalidInput)
	}
	if topkTags <= 0 {
		topkTags = DefaultTopkTags
	}
	if limitPerTag <= 0 {
		limitPerTag = DefaultLimitPerTag
	}

	vocab, err := s.ledger.TagVocabulary(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tag vocabulary: %w", err)
	}

	result := &domain.TagSearchResult{Query: query}
	if len(vocab) == 0 {
		result.Message = "no tags in the corpus yet"
		return result, nil
	}

	matched := s.matchTags(ctx, query, vocab)
	if len(matched) > topkTags {
		matched = matched[:topkTags]
	}
	if len(matched) == 0 {
		result.Message = fmt.Sprintf("no tags matched %q", query)
		return result, nil
	}
	result.MatchedTags = matched

	seen := make(map[int64]bool)
	for _, tag := range matched {
		frags, err := s.ledger.FragmentsByTag(ctx, tag, limitPerTag)
		if err != nil {
			return nil, fmt.Errorf("fragments for tag %q: %w", tag, err)
		}
		for _, f := range frags {
			if seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			result.Fragments = append(result.Fragments, f)
		}
	}
	return result, nil
}

// matchTags selects vocabulary tags for the query, via the LLM when
// configured and deterministically otherwise.
func (s *TagSearchService) matchTags(ctx context.Context, query string, vocab []string) []string {
	if s.mode.RequiresLLM() {
		if ranked := s.rankTagsLLM(ctx, query, vocab); len(ranked) > 0 {
			return ranked
		}
		logger.Debug("LLM tag ranking returned nothing usable, using deterministic matching")
	}
	return matchTagsDeterministic(query, vocab)
}

// matchTagsDeterministic runs tiered matching: exact match first, then
// vocabulary tags containing the query, then tags contained in the query.
// Tiers are concatenated in order with duplicates removed.
func matchTagsDeterministic(query string, vocab []string) []string {
	q := strings.ToLower(query)

	var exact, contains, contained []string
	for _, tag := range vocab {
		lower := strings.ToLower(tag)
		switch {
		case lower == q:
			exact = append(exact, tag)
		case strings.Contains(lower, q):
			contains = append(contains, tag)
		case strings.Contains(q, lower):
			contained = append(contained, tag)
		}
	}

	var matched []string
	seen := make(map[string]bool)
	for _, tier := range [][]string{exact, contains, contained} {
		for _, tag := range tier {
			key := strings.ToLower(tag)
			if seen[key] {
				continue
			}
			seen[key] = true
			matched = append(matched, tag)
		}
	}
	return matched
}

// rankTagsLLM asks the model to rank the vocabulary against the query.
// Returned names are filtered to the actual vocabulary so a hallucinated
// tag can never reach the ledger query. Any failure returns nil and the
// caller falls back to deterministic matching.
func (s *TagSearchService) rankTagsLLM(ctx context.Context, query string, vocab []string) []string {
	prompt := fmt.Sprintf(s.tagRankPrompt(), query, strings.Join(vocab, ", "))

	raw, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{})
	if err != nil {
		logger.Warn("LLM tag ranking failed: %v", err)
		return nil
	}

	known := make(map[string]string, len(vocab))
	for _, tag := range vocab {
		known[strings.ToLower(tag)] = tag
	}

	var ranked []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(raw, "\n") {
		name := strings.ToLower(strings.Trim(strings.TrimSpace(line), "-*•\"' \t"))
		if name == "" {
			continue
		}
		canonical, ok := known[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		ranked = append(ranked, canonical)
	}
	return ranked
}

func (s *TagSearchService) tagRankPrompt() string {
	if s.promptStore == nil {
		return defaultTagRankPrompt
	}
	prompt, err := s.promptStore.Load(driven.PromptTagRank)
	if err != nil {
		return defaultTagRankPrompt
	}
	return prompt
}
