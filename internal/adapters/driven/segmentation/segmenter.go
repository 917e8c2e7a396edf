// Package segmentation provides the model-backed segmentation service.
//
// It layers on any LLMService: the window is sent with a JSON-array prompt
// and the response is parsed permissively, because models routinely wrap the
// array in prose or truncate the tail. An unrecoverable response is reported
// as malformed rather than an error so the caller can split that window
// locally.
package segmentation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
)

// Ensure Service implements the interfaces.
var (
	_ driven.SegmentationService = (*Service)(nil)
	_ driven.PromptStoreAware    = (*Service)(nil)
)

// defaultSegmentPrompt is the fallback prompt when no PromptStore is configured.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const defaultSegmentPrompt = `Split the text into self-contained knowledge fragments of at most %d characters each.
Give every fragment 1-3 short category tags. Prefer tags from this list when they fit: %s
Respond with ONLY a JSON array, no prose:
[{"chunk": "...", "tags": ["..."]}]

Text:
%s`

// Config holds configuration for the segmentation service.
type Config struct {
	// MaxTokens caps the model response size (default: 4096).
	MaxTokens int

	// Temperature controls randomness (default: 0, deterministic).
	Temperature float64
}

// Service segments text windows via an LLM.
type Service struct {
	llm         driven.LLMService
	promptStore driven.PromptStore
	maxTokens   int
	temperature float64
}

// NewService creates a segmentation service over the given LLM.
func NewService(llm driven.LLMService, cfg Config) *Service {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Service{
		llm:         llm,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *Service) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Segment splits window text into tagged pieces. A response that cannot be
// parsed as a JSON array is returned with Malformed set; transport failures
// return an error.
func (s *Service) Segment(ctx context.Context, window string, maxLen int, tagHints []string) (*driven.SegmentResult, error) {
	prompt := fmt.Sprintf(s.loadPrompt(), maxLen, hintList(tagHints), window)

	raw, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}

	pieces, ok := parsePieces(raw)
	if !ok {
		return &driven.SegmentResult{Malformed: true, Raw: raw}, nil
	}
	return &driven.SegmentResult{Pieces: pieces}, nil
}

// ModelName returns the name of the underlying model.
func (s *Service) ModelName() string {
	return s.llm.ModelName()
}

// Close releases the underlying LLM.
func (s *Service) Close() error {
	return s.llm.Close()
}

func (s *Service) loadPrompt() string {
	if s.promptStore == nil {
		return defaultSegmentPrompt
	}
	prompt, err := s.promptStore.Load(driven.PromptSegment)
	if err != nil {
		return defaultSegmentPrompt
	}
	return prompt
}

func hintList(hints []string) string {
	if len(hints) == 0 {
		return "(none)"
	}
	return strings.Join(hints, ", ")
}

// parsePieces extracts the JSON array from a model response. It strips
// surrounding prose and code fences, and when the tail is cut off it retries
// after truncating to the last closing bracket.
func parsePieces(raw string) ([]driven.SegmentedPiece, bool) {
	body := raw

	start := strings.Index(body, "[")
	if start < 0 {
		return nil, false
	}
	body = body[start:]

	if pieces, ok := tryUnmarshal(body); ok {
		return pieces, true
	}

	// Truncated or noisy tail: cut at the last closing bracket and retry.
	if end := strings.LastIndex(body, "]"); end >= 0 {
		if pieces, ok := tryUnmarshal(body[:end+1]); ok {
			return pieces, true
		}
	}
	return nil, false
}

func tryUnmarshal(body string) ([]driven.SegmentedPiece, bool) {
	var pieces []driven.SegmentedPiece
	if err := json.Unmarshal([]byte(body), &pieces); err != nil {
		return nil, false
	}

	// Drop entries with empty chunks; an all-empty array is malformed.
	kept := pieces[:0]
	for _, p := range pieces {
		if strings.TrimSpace(p.Chunk) != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, false
	}
	return kept, true
}
