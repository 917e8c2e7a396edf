package chunking

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

// qaPattern matches repeating question/answer pairs with bilingual markers
// (Q/Question/问/问题 and A/Answer/答/答案), anchored at line starts.
var qaPattern = regexp.MustCompile(
	`(?si)(?:^|\n+)[ \t]*(?:Question|Q|问题|问)[ \t]*[:：][ \t]*(.+?)[ \t]*` +
		`\n+[ \t]*(?:Answer|A|答案|答)[ \t]*[:：][ \t]*(.+?)` +
		`(?:\n+[ \t]*(?:Question|Q|问题|问)[ \t]*[:：]|\z)`,
)

// QASplitter is the pattern tier: when the text matches a repeating
// question/answer layout, each pair becomes one fragment. Used only when the
// semantic tier yields zero fragments.
type QASplitter struct {
	maxLen     int
	defaultTag string
}

// NewQASplitter creates the Q&A pattern strategy.
func NewQASplitter(maxLen int, defaultTag string) *QASplitter {
	if maxLen <= 0 {
		maxLen = DefaultMaxFragmentChars
	}
	if defaultTag == "" {
		defaultTag = DefaultTag
	}
	return &QASplitter{maxLen: maxLen, defaultTag: defaultTag}
}

// Name returns the strategy name.
func (s *QASplitter) Name() string {
	return "qa"
}

// Attempt emits one fragment per question/answer pair, or nil when the text
// does not follow the pattern. Pairs are tagged by split kind only.
func (s *QASplitter) Attempt(_ context.Context, text string) ([]Piece, error) {
	var pieces []Piece
	rest := text
	for {
		m := qaPattern.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}
		q := strings.TrimSpace(rest[m[2]:m[3]])
		a := strings.TrimSpace(rest[m[4]:m[5]])
		if q != "" && a != "" {
			pieces = append(pieces, Piece{
				Text:  truncateRunes("Q: "+q+"\nA: "+a, s.maxLen),
				Tags:  []string{s.defaultTag},
				Split: domain.SplitQA,
			})
		}
		// The lookahead consumed the next Q marker; resume from the end of
		// the answer so the following pair is still matched.
		if m[5] >= len(rest) {
			break
		}
		rest = rest[m[5]:]
	}
	return pieces, nil
}
