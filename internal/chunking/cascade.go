// Package chunking converts raw document text into tagged fragments using a
// tiered cascade of splitting strategies.
package chunking

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/logger"
)

// DefaultMaxFragmentChars is the default fragment length budget.
const DefaultMaxFragmentChars = 400

// DefaultTag is the placeholder backfilled when a strategy emits no tags.
const DefaultTag = "general"

// Piece is one (text, tags) pair produced by a strategy, in source order.
type Piece struct {
	// Text is the fragment content, at most the configured max length.
	Text string

	// Tags holds 1..N short category labels, never empty.
	Tags []string

	// Split records which strategy produced the piece.
	Split domain.SplitKind
}

// Strategy is one tier of the cascade. Attempt returns the pieces for the
// whole text, or nil when the strategy does not apply. An error means the
// tier failed outright; the driver falls through to the next tier either way.
type Strategy interface {
	// Name returns the strategy name for logging.
	Name() string

	// Attempt splits text into tagged pieces, or returns nil when the
	// strategy yields nothing usable.
	Attempt(ctx context.Context, text string) ([]Piece, error)
}

// Cascade tries an ordered list of strategies and stops at the first that
// yields fragments. Strategies later in the list are progressively cruder
// but cannot fail.
type Cascade struct {
	strategies []Strategy
}

// NewCascade creates a cascade over the given strategies, tried in order.
func NewCascade(strategies ...Strategy) *Cascade {
	return &Cascade{strategies: strategies}
}

// Run splits text via the first strategy that produces pieces.
// Empty input is a validation error.
func (c *Cascade) Run(ctx context.Context, text string) ([]Piece, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("chunking: empty text: %w", domain.ErrInvalidInput)
	}

	var lastErr error
	for _, s := range c.strategies {
		pieces, err := s.Attempt(ctx, text)
		if err != nil {
			logger.Warn("Chunking tier %s failed: %v", s.Name(), err)
			lastErr = err
			continue
		}
		if len(pieces) == 0 {
			logger.Debug("Chunking tier %s yielded nothing, trying next", s.Name())
			continue
		}
		logger.Info("Chunking tier %s produced %d fragments", s.Name(), len(pieces))
		return pieces, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("chunking: all tiers failed: %w", lastErr)
	}
	return nil, fmt.Errorf("chunking: no tier produced fragments: %w", domain.ErrInvalidInput)
}

// normalizeTags trims, drops empties and deduplicates tags preserving order.
// An empty result is backfilled with the fallback tag.
func normalizeTags(tags []string, fallback string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		if fallback == "" {
			fallback = DefaultTag
		}
		return []string{fallback}
	}
	return out
}

// truncateRunes hard-truncates s to at most n characters.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
