// Package documents provides the documents list view for the TUI.
package documents

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
)

// View is the documents list view.
type View struct {
	styles *styles.Styles
	ledger driven.Ledger

	documents    []domain.Document
	selected     int
	width        int
	height       int
	ready        bool
	err          error
	loading      bool
	scrollOffset int
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, ledger driven.Ledger) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:    s,
		ledger:    ledger,
		documents: []domain.Document{},
	}
}

// Init initialises the view and triggers the first load.
func (v *View) Init() tea.Cmd {
	return v.loadDocuments()
}

// loadDocuments returns a command that loads the corpus document list.
func (v *View) loadDocuments() tea.Cmd {
	ledger := v.ledger
	return func() tea.Msg {
		if ledger == nil {
			return messages.DocumentsLoaded{Err: fmt.Errorf("ledger not available")}
		}
		docs, err := ledger.ListDocuments(context.Background())
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ready = true
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.documents = msg.Documents
			v.err = nil
			if v.selected >= len(v.documents) {
				v.selected = 0
			}
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case "up", "k":
		if v.selected > 0 {
			v.selected--
			if v.selected < v.scrollOffset {
				v.scrollOffset = v.selected
			}
		}
		return v, nil

	case "down", "j":
		if v.selected < len(v.documents)-1 {
			v.selected++
			if v.selected >= v.scrollOffset+v.visibleCount() {
				v.scrollOffset = v.selected - v.visibleCount() + 1
			}
		}
		return v, nil

	case "r":
		v.loading = true
		v.err = nil
		return v, v.loadDocuments()
	}

	return v, nil
}

// visibleCount returns how many document rows fit on screen.
func (v *View) visibleCount() int {
	count := (v.height - 8) / 2
	if count < 1 {
		count = 1
	}
	return count
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Documents"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents ingested yet."))
	default:
		b.WriteString(v.renderList())
	}

	b.WriteString("\n\n")
	footer := v.styles.Muted.Render("[j/k] Navigate  [r] Refresh  [esc] Back")
	b.WriteString(footer)

	return b.String()
}

// renderList renders the visible slice of the document list.
func (v *View) renderList() string {
	var b strings.Builder

	header := v.styles.Subtitle.Render(fmt.Sprintf("Corpus (%d documents)", len(v.documents)))
	b.WriteString(header)
	b.WriteString("\n\n")

	start := v.scrollOffset
	end := start + v.visibleCount()
	if end > len(v.documents) {
		end = len(v.documents)
	}

	for i := start; i < end; i++ {
		b.WriteString(v.renderDocument(i, &v.documents[i]))
		b.WriteString("\n")
	}

	return b.String()
}

// renderDocument formats a single document row.
func (v *View) renderDocument(index int, doc *domain.Document) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	title := doc.Title
	if title == "" {
		title = "(Untitled)"
	}

	line := fmt.Sprintf("%s%s  (%d fragments)", indicator, title, doc.FragmentCount)
	detail := "    " + doc.Path
	if len(doc.Tags) > 0 {
		detail += "  [" + strings.Join(doc.Tags, ", ") + "]"
	}

	if index == v.selected {
		return v.styles.Selected.Render(line) + "\n" + v.styles.Muted.Render(detail)
	}
	return v.styles.Normal.Render(line) + "\n" + v.styles.Muted.Render(detail)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Documents returns the currently loaded documents.
func (v *View) Documents() []domain.Document {
	return v.documents
}

// Selected returns the selected document index.
func (v *View) Selected() int {
	return v.selected
}

// SelectedDocument returns the selected document, or nil if none.
func (v *View) SelectedDocument() *domain.Document {
	if len(v.documents) == 0 || v.selected < 0 || v.selected >= len(v.documents) {
		return nil
	}
	return &v.documents[v.selected]
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
