package domain

import "strings"

// DefaultHistoryTurns is the default conversation history capacity.
const DefaultHistoryTurns = 6

// Turn is one (query, answer) exchange in a conversation.
type Turn struct {
	Query  string
	Answer string
}

// History is a fixed-capacity ring buffer of conversation turns.
// Oldest turns are evicted first once capacity is exceeded. Each session owns
// its own History; a History is not safe for concurrent writers.
type History struct {
	turns []Turn
	head  int
	count int
}

// NewHistory creates a history buffer holding at most capacity turns.
// Non-positive capacities fall back to DefaultHistoryTurns.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryTurns
	}
	return &History{turns: make([]Turn, capacity)}
}

// Append records a completed turn, evicting the oldest if full.
func (h *History) Append(query, answer string) {
	idx := (h.head + h.count) % len(h.turns)
	h.turns[idx] = Turn{Query: query, Answer: answer}
	if h.count < len(h.turns) {
		h.count++
		return
	}
	h.head = (h.head + 1) % len(h.turns)
}

// Len returns the number of retained turns.
func (h *History) Len() int {
	return h.count
}

// Cap returns the buffer capacity.
func (h *History) Cap() int {
	return len(h.turns)
}

// Turns returns the retained turns, oldest first.
func (h *History) Turns() []Turn {
	out := make([]Turn, 0, h.count)
	for i := 0; i < h.count; i++ {
		out = append(out, h.turns[(h.head+i)%len(h.turns)])
	}
	return out
}

// Clear drops all retained turns.
func (h *History) Clear() {
	h.head = 0
	h.count = 0
}

// Render formats the retained turns as a transcript for prompt context.
// Returns "(none)" when the history is empty.
func (h *History) Render() string {
	if h.count == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, t := range h.Turns() {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("user: ")
		b.WriteString(t.Query)
		b.WriteString("\nassistant: ")
		b.WriteString(t.Answer)
	}
	return b.String()
}
