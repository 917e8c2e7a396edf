// Package chat provides the conversational question answering view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driving"
)

// ErrNoRetriever is returned when a question is asked without a retriever.
var ErrNoRetriever = errors.New("chat: retriever not available")

// maxVisibleTurns bounds how many completed turns are rendered.
const maxVisibleTurns = 6

// Turn is one completed question and answer exchange.
type Turn struct {
	Question string
	Answer   string
	Sources  []domain.Source
}

// View is the chat view. It keeps a bounded conversation history and
// feeds it to the retriever on every question.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	retriever driving.Retriever

	input     *input.QueryInput
	statusBar *status.Bar

	history  *domain.History
	turns    []Turn
	scopeID  string
	err      error
	thinking bool
	width    int
	height   int
	ready    bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, retriever driving.Retriever) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	in := input.NewQueryInput(s)
	in.SetLabel("Ask: ")
	in.SetPlaceholder("Ask a question...")

	return &View{
		styles:    s,
		keymap:    km,
		retriever: retriever,
		input:     in,
		statusBar: status.NewBar(s, km),
		history:   domain.NewHistory(domain.DefaultHistoryTurns),
	}
}

// Init initialises the chat view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// SetScope restricts retrieval to one knowledge base.
func (v *View) SetScope(scopeID string) {
	v.scopeID = scopeID
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		return v.handleAnswerCompleted(msg)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case "enter":
		if v.thinking {
			return v, nil
		}
		question := strings.TrimSpace(v.input.Value())
		if question == "" {
			return v, nil
		}
		v.thinking = true
		v.err = nil
		v.input.Reset()
		v.statusBar.SetState(status.StateThinking)
		return v, v.performAsk(question)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// performAsk returns a command that asks the retriever a question.
// The view's history is carried across turns so the model sees the
// conversation so far.
func (v *View) performAsk(question string) tea.Cmd {
	retriever := v.retriever
	history := v.history
	opts := domain.RetrievalOptions{ScopeID: v.scopeID}
	return func() tea.Msg {
		if retriever == nil {
			return messages.AnswerCompleted{Question: question, Err: ErrNoRetriever}
		}
		result, err := retriever.Ask(context.Background(), history, question, opts, nil)
		if err != nil {
			return messages.AnswerCompleted{Question: question, Err: err}
		}
		return messages.AnswerCompleted{
			Question: question,
			Answer:   result.Answer,
			Sources:  result.Sources,
		}
	}
}

// handleAnswerCompleted records the finished turn.
func (v *View) handleAnswerCompleted(msg messages.AnswerCompleted) (*View, tea.Cmd) {
	v.thinking = false

	if msg.Err != nil {
		v.err = msg.Err
		v.statusBar.SetState(status.StateError)
		v.statusBar.SetMessage(msg.Err.Error())
		return v, nil
	}

	v.err = nil
	v.turns = append(v.turns, Turn{
		Question: msg.Question,
		Answer:   msg.Answer,
		Sources:  msg.Sources,
	})
	if len(v.turns) > maxVisibleTurns {
		v.turns = v.turns[len(v.turns)-maxVisibleTurns:]
	}
	v.statusBar.SetState(status.StateReady)
	return v, nil
}

// View renders the chat view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Chat"))
	b.WriteString("\n\n")

	if len(v.turns) == 0 && !v.thinking && v.err == nil {
		b.WriteString(v.styles.Muted.Render("Ask a question about your corpus."))
		b.WriteString("\n")
	}

	for _, turn := range v.turns {
		b.WriteString(v.styles.Subtitle.Render("You: "))
		b.WriteString(v.styles.Normal.Render(turn.Question))
		b.WriteString("\n")
		b.WriteString(v.styles.Normal.Render(turn.Answer))
		b.WriteString("\n")
		for i, src := range turn.Sources {
			line := fmt.Sprintf("  [%d] %s #%d (%.3f)", i+1, src.Title, src.Ordinal, src.Score)
			b.WriteString(v.styles.Muted.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if v.thinking {
		b.WriteString(v.styles.Muted.Render("Thinking..."))
		b.WriteString("\n\n")
	}
	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(v.input.View())
	b.WriteString("\n\n")
	b.WriteString(v.statusBar.View())

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.SetWidth(width)
	v.statusBar.SetWidth(width)
}

// Reset clears the transcript and starts a fresh conversation.
func (v *View) Reset() {
	v.turns = nil
	v.err = nil
	v.thinking = false
	v.history = domain.NewHistory(domain.DefaultHistoryTurns)
	v.input.Reset()
	v.statusBar.Clear()
}

// Turns returns the rendered conversation turns.
func (v *View) Turns() []Turn {
	return v.turns
}

// History returns the conversation history fed to the retriever.
func (v *View) History() *domain.History {
	return v.history
}

// Thinking reports whether an answer is in flight.
func (v *View) Thinking() bool {
	return v.thinking
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
