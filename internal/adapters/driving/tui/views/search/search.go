// Package search provides the search view for the TUI.
package search

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driving"
)

// statusBarReserve is the number of rows kept for the input and status bar.
const statusBarReserve = 10

// View is the search view combining query input and a result list.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	retriever driving.Retriever

	input     *input.QueryInput
	list      *list.ResultList
	statusBar *status.Bar

	query      string
	scopeID    string
	err        error
	focusInput bool
	searching  bool
	width      int
	height     int
	ready      bool
}

// NewView creates a new search view.
func NewView(s *styles.Styles, km *keymap.KeyMap, retriever driving.Retriever) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		retriever:  retriever,
		input:      input.NewQueryInput(s),
		list:       list.NewResultList(s),
		statusBar:  status.NewBar(s, km),
		focusInput: true,
	}
}

// Init initialises the search view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// SetScope restricts searches to one knowledge base.
func (v *View) SetScope(scopeID string) {
	v.scopeID = scopeID
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		return v.handleSearchCompleted(msg)
	}

	if v.focusInput {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}
	return v, nil
}

// handleKeyMsg routes key presses based on focus.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.focusInput {
		return v.handleInputKeyMsg(msg)
	}
	return v.handleResultsKeyMsg(msg)
}

// handleInputKeyMsg handles keys while the query input has focus.
func (v *View) handleInputKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case "enter":
		query := strings.TrimSpace(v.input.Value())
		if query == "" {
			return v, nil
		}
		v.query = query
		v.searching = true
		v.err = nil
		v.statusBar.SetState(status.StateSearching)
		return v, v.performSearch(query)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleResultsKeyMsg handles keys while the result list has focus.
func (v *View) handleResultsKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.focusInput = true
		return v, v.input.Focus()

	case "n":
		v.Reset()
		return v, v.input.Focus()
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// performSearch returns a command that executes the search.
func (v *View) performSearch(query string) tea.Cmd {
	retriever := v.retriever
	opts := domain.RetrievalOptions{ScopeID: v.scopeID}
	return func() tea.Msg {
		if retriever == nil {
			return messages.SearchCompleted{Err: ErrNoRetriever}
		}
		results, err := retriever.Search(context.Background(), query, opts)
		return messages.SearchCompleted{Results: results, Err: err}
	}
}

// handleSearchCompleted applies search results to the view.
func (v *View) handleSearchCompleted(msg messages.SearchCompleted) (*View, tea.Cmd) {
	v.searching = false

	if msg.Err != nil {
		v.err = msg.Err
		v.statusBar.SetState(status.StateError)
		v.statusBar.SetMessage(msg.Err.Error())
		return v, nil
	}

	v.err = nil
	v.list.SetResults(msg.Results)
	v.statusBar.SetState(status.StateResults)
	v.statusBar.SetResultCount(len(msg.Results))
	v.focusInput = false
	v.input.Blur()
	return v, nil
}

// View renders the search view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Search"))
	b.WriteString("\n\n")
	b.WriteString(v.input.View())
	b.WriteString("\n\n")

	switch {
	case v.searching:
		b.WriteString(v.styles.Muted.Render("Searching..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	default:
		b.WriteString(v.list.View())
	}

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
	v.list.SetDimensions(width, height-statusBarReserve)
	v.statusBar.SetWidth(width)
}

// Reset clears the view for a new search.
func (v *View) Reset() {
	v.query = ""
	v.err = nil
	v.searching = false
	v.focusInput = true
	v.input.Reset()
	v.list.SetResults(nil)
	v.statusBar.Clear()
}

// Query returns the last submitted query.
func (v *View) Query() string {
	return v.query
}

// Results returns the current results.
func (v *View) Results() []domain.ScoredFragment {
	return v.list.Results()
}

// SelectedIndex returns the selected result index.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// FocusedOnInput reports whether the query input has focus.
func (v *View) FocusedOnInput() bool {
	return v.focusInput
}
