package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
)

// fakeRegistry maps paths to canned segments.
type fakeRegistry struct {
	segments map[string][]driven.Segment
	errs     map[string]error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		segments: make(map[string][]driven.Segment),
		errs:     make(map[string]error),
	}
}

func (r *fakeRegistry) add(path, text string, hints ...string) {
	r.segments[path] = []driven.Segment{{
		Text:       text,
		Title:      path,
		SourceType: "file",
		TagHints:   hints,
	}}
}

func (r *fakeRegistry) Load(_ context.Context, path string) ([]driven.Segment, error) {
	if err, ok := r.errs[path]; ok {
		return nil, err
	}
	segs, ok := r.segments[path]
	if !ok {
		return nil, fmt.Errorf("loading %s: %w", path, domain.ErrUnsupportedType)
	}
	return segs, nil
}

// fakeEmbedder returns fixed-dimension vectors. shortBatch drops one vector
// from every batch to simulate a miscounting provider.
type fakeEmbedder struct {
	dims       int
	embedErr   error
	shortBatch bool

	mu         sync.Mutex
	batchSizes []int
}

func newFakeEmbedder(dims int) *fakeEmbedder {
	return &fakeEmbedder{dims: dims}
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	vec := make([]float32, e.dims)
	vec[0] = float32(len(text))
	return vec, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	e.mu.Lock()
	e.batchSizes = append(e.batchSizes, len(texts))
	e.mu.Unlock()

	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	if e.shortBatch && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int            { return e.dims }
func (e *fakeEmbedder) ModelName() string          { return "fake-embed" }
func (e *fakeEmbedder) Ping(context.Context) error { return nil }
func (e *fakeEmbedder) Close() error               { return nil }

// fakeIndex enforces the same append contract as the real index but returns
// scripted search hits.
type fakeIndex struct {
	mu      sync.Mutex
	dims    int
	size    int64
	ids     []int64
	hits    []driven.VectorHit
	searchK []int
	flushes int
}

func newFakeIndex(dims int) *fakeIndex {
	return &fakeIndex{dims: dims}
}

func (x *fakeIndex) Size() int64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.size
}

func (x *fakeIndex) AddBatch(_ context.Context, ids []int64, vectors [][]float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(ids) != len(vectors) {
		return domain.ErrBatchMismatch
	}
	for i, id := range ids {
		if id != x.size+int64(i) {
			return domain.ErrIndexInconsistent
		}
	}
	for _, v := range vectors {
		if len(v) != x.dims {
			return domain.ErrDimensionMismatch
		}
	}
	x.ids = append(x.ids, ids...)
	x.size += int64(len(ids))
	return nil
}

func (x *fakeIndex) Search(_ context.Context, _ []float32, k int) ([]driven.VectorHit, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.searchK = append(x.searchK, k)
	if k > len(x.hits) {
		k = len(x.hits)
	}
	return append([]driven.VectorHit(nil), x.hits[:k]...), nil
}

func (x *fakeIndex) Flush() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.flushes++
	return nil
}

func (x *fakeIndex) Dimensions() int { return x.dims }
func (x *fakeIndex) Close() error    { return nil }

// fakeLLM returns canned responses and records what it was asked.
type fakeLLM struct {
	generateResp string
	generateErr  error
	chatResp     string
	chatErr      error

	lastPrompt   string
	lastMessages []driven.ChatMessage
	streamed     bool
}

func (l *fakeLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	l.lastPrompt = prompt
	if l.generateErr != nil {
		return "", l.generateErr
	}
	return l.generateResp, nil
}

func (l *fakeLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	l.lastMessages = messages
	if l.chatErr != nil {
		return "", l.chatErr
	}
	return l.chatResp, nil
}

func (l *fakeLLM) ChatStream(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions, onToken func(string)) (string, error) {
	l.lastMessages = messages
	l.streamed = true
	if l.chatErr != nil {
		return "", l.chatErr
	}
	for _, tok := range strings.SplitAfter(l.chatResp, " ") {
		onToken(tok)
	}
	return l.chatResp, nil
}

func (l *fakeLLM) ModelName() string          { return "fake-llm" }
func (l *fakeLLM) Ping(context.Context) error { return nil }
func (l *fakeLLM) Close() error               { return nil }
