package chunking

import (
	"context"
	"strings"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

// defaultSeparators is the priority list for recursive splitting: blank
// line, newline, sentence-ending punctuation, clause punctuation, space,
// then hard cut. Lengths are measured in characters, not bytes.
var defaultSeparators = []string{"\n\n", "\n", "。", "！", "？", "，", " ", ""}

// FixedSplitter is the last cascade tier: recursive character splitting
// with overlap. It prefers the earliest-listed separator that keeps a chunk
// within budget and never exceeds the configured size.
type FixedSplitter struct {
	chunkSize  int
	overlap    int
	separators []string
	defaultTag string
	split      domain.SplitKind
}

// FixedOption configures the fixed splitter.
type FixedOption func(*FixedSplitter)

// WithOverlap overrides the default overlap of chunkSize/2.
func WithOverlap(overlap int) FixedOption {
	return func(s *FixedSplitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithDefaultTag overrides the placeholder tag on emitted pieces.
func WithDefaultTag(tag string) FixedOption {
	return func(s *FixedSplitter) {
		if tag != "" {
			s.defaultTag = tag
		}
	}
}

// withSplitKind marks emitted pieces with a different split kind. Used by
// the semantic tier when recovering a malformed window.
func withSplitKind(kind domain.SplitKind) FixedOption {
	return func(s *FixedSplitter) {
		s.split = kind
	}
}

// NewFixedSplitter creates a recursive character splitter with the given
// chunk size. Overlap defaults to chunkSize/2.
func NewFixedSplitter(chunkSize int, opts ...FixedOption) *FixedSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultMaxFragmentChars
	}
	s := &FixedSplitter{
		chunkSize:  chunkSize,
		overlap:    chunkSize / 2,
		separators: defaultSeparators,
		defaultTag: DefaultTag,
		split:      domain.SplitCharacter,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 2
	}
	return s
}

// Name returns the strategy name.
func (s *FixedSplitter) Name() string {
	return "fixed"
}

// Attempt splits text into character-bounded pieces. It cannot fail for
// non-empty input.
func (s *FixedSplitter) Attempt(_ context.Context, text string) ([]Piece, error) {
	chunks := s.SplitText(text)
	pieces := make([]Piece, 0, len(chunks))
	for _, c := range chunks {
		pieces = append(pieces, Piece{
			Text:  c,
			Tags:  []string{s.defaultTag},
			Split: s.split,
		})
	}
	return pieces, nil
}

// SplitText splits text into chunks of at most chunkSize characters.
func (s *FixedSplitter) SplitText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.splitRecursive(text, s.separators)
}

func (s *FixedSplitter) splitRecursive(text string, separators []string) []string {
	// Pick the earliest separator that occurs in the text; the empty string
	// is the hard-cut last resort.
	separator := ""
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			remaining = nil
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	if separator == "" {
		return s.hardCut(text)
	}

	splits := strings.Split(text, separator)

	var final []string
	var good []string
	for _, sp := range splits {
		if runeLen(sp) < s.chunkSize {
			good = append(good, sp)
			continue
		}
		// Oversized split: flush what we have, then recurse with the
		// remaining separators.
		if len(good) > 0 {
			final = append(final, s.merge(good, separator)...)
			good = nil
		}
		if len(remaining) == 0 {
			final = append(final, s.hardCut(sp)...)
		} else {
			final = append(final, s.splitRecursive(sp, remaining)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, separator)...)
	}
	return final
}

// merge accumulates small splits into chunks up to chunkSize, carrying
// roughly overlap characters between consecutive chunks.
func (s *FixedSplitter) merge(splits []string, separator string) []string {
	sepLen := runeLen(separator)

	var chunks []string
	var current []string
	total := 0

	joinLen := func(extra int) int {
		n := total + extra
		if len(current) > 0 {
			n += sepLen
		}
		return n
	}

	for _, sp := range splits {
		l := runeLen(sp)
		if joinLen(l) > s.chunkSize && len(current) > 0 {
			if c := s.join(current, separator); c != "" {
				chunks = append(chunks, c)
			}
			// Drop leading splits until the retained tail fits both the
			// overlap budget and the incoming split.
			for len(current) > 0 && (total > s.overlap || joinLen(l) > s.chunkSize) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		current = append(current, sp)
		total += l
		if len(current) > 1 {
			total += sepLen
		}
	}
	if c := s.join(current, separator); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

func (s *FixedSplitter) join(splits []string, separator string) string {
	return strings.TrimSpace(strings.Join(splits, separator))
}

// hardCut slices text into chunkSize-character windows stepping by
// chunkSize-overlap.
func (s *FixedSplitter) hardCut(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func runeLen(s string) int {
	return len([]rune(s))
}
