package chunking

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quarry-cli/internal/logger"
)

// DefaultWindowChars is the default window budget for the semantic tier.
const DefaultWindowChars = 3000

// SemanticSplitter is the first cascade tier: the text is packed into
// paragraph windows and each window is segmented by an external model into
// tagged pieces. A window whose model response cannot be parsed is recovered
// locally with the fixed splitter so one bad response never loses content.
type SemanticSplitter struct {
	segmenter  driven.SegmentationService
	windowSize int
	maxLen     int
	defaultTag string
	tagHints   []string
	recovery   *FixedSplitter
}

// SemanticOption configures the semantic splitter.
type SemanticOption func(*SemanticSplitter)

// WithWindowSize overrides the default window budget.
func WithWindowSize(chars int) SemanticOption {
	return func(s *SemanticSplitter) {
		if chars > 0 {
			s.windowSize = chars
		}
	}
}

// WithMaxFragmentChars overrides the default fragment length budget.
func WithMaxFragmentChars(chars int) SemanticOption {
	return func(s *SemanticSplitter) {
		if chars > 0 {
			s.maxLen = chars
		}
	}
}

// WithTagHints supplies a reference tag vocabulary passed to the model.
func WithTagHints(hints []string) SemanticOption {
	return func(s *SemanticSplitter) {
		s.tagHints = hints
	}
}

// WithSemanticDefaultTag overrides the tag backfilled on untagged pieces.
func WithSemanticDefaultTag(tag string) SemanticOption {
	return func(s *SemanticSplitter) {
		if tag != "" {
			s.defaultTag = tag
		}
	}
}

// NewSemanticSplitter creates the model-backed strategy. Unless an explicit
// default tag is configured, untagged pieces are backfilled with the first
// tag hint when hints exist.
func NewSemanticSplitter(segmenter driven.SegmentationService, opts ...SemanticOption) *SemanticSplitter {
	s := &SemanticSplitter{
		segmenter:  segmenter,
		windowSize: DefaultWindowChars,
		maxLen:     DefaultMaxFragmentChars,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultTag == "" && len(s.tagHints) > 0 {
		s.defaultTag = strings.TrimSpace(s.tagHints[0])
	}
	if s.defaultTag == "" {
		s.defaultTag = DefaultTag
	}
	s.recovery = NewFixedSplitter(s.maxLen,
		WithDefaultTag(s.defaultTag),
		withSplitKind(domain.SplitFallback))
	return s
}

// Name returns the strategy name.
func (s *SemanticSplitter) Name() string {
	return "semantic"
}

// Attempt windows the text and segments each window through the model.
// A transport error on any window fails the whole tier; a malformed model
// response only downgrades that window to the fixed splitter.
func (s *SemanticSplitter) Attempt(ctx context.Context, text string) ([]Piece, error) {
	if s.segmenter == nil {
		return nil, fmt.Errorf("chunking: no segmentation service: %w", domain.ErrSegmentationUnavailable)
	}

	windows := s.windows(text)
	if len(windows) == 0 {
		return nil, nil
	}

	var pieces []Piece
	for i, window := range windows {
		result, err := s.segmenter.Segment(ctx, window, s.maxLen, s.tagHints)
		if err != nil {
			return nil, fmt.Errorf("chunking: segment window %d/%d: %w", i+1, len(windows), err)
		}
		if result.Malformed {
			logger.Warn("Segmentation window %d/%d returned unparseable output, splitting locally", i+1, len(windows))
			recovered, _ := s.recovery.Attempt(ctx, window)
			pieces = append(pieces, recovered...)
			continue
		}
		for _, p := range result.Pieces {
			chunk := strings.TrimSpace(p.Chunk)
			if chunk == "" {
				continue
			}
			pieces = append(pieces, Piece{
				Text:  truncateRunes(chunk, s.maxLen),
				Tags:  normalizeTags(p.Tags, s.defaultTag),
				Split: domain.SplitSemantic,
			})
		}
	}
	return pieces, nil
}

// windows packs paragraphs into chunks of at most windowSize characters.
// A single paragraph longer than the budget becomes its own window rather
// than being cut mid-paragraph.
func (s *SemanticSplitter) windows(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var windows []string
	var current []string
	total := 0

	flush := func() {
		if len(current) > 0 {
			windows = append(windows, strings.Join(current, "\n\n"))
			current = nil
			total = 0
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		l := runeLen(para)
		if total > 0 && total+2+l > s.windowSize {
			flush()
		}
		current = append(current, para)
		if total > 0 {
			total += 2
		}
		total += l
		if total >= s.windowSize {
			flush()
		}
	}
	flush()
	return windows
}
