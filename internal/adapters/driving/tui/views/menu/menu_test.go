package menu

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/styles"
)

func TestNewView(t *testing.T) {
	v := NewView(styles.DefaultStyles())
	require.NotNil(t, v)
	assert.Equal(t, 0, v.Selected())
}

func TestMenuNavigation(t *testing.T) {
	v := NewView(nil)
	v.SetDimensions(80, 24)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, v.Selected())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, v.Selected())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 1, v.Selected())

	// Up from the top stays put
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyUp})
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, v.Selected())
}

func TestMenuSelect(t *testing.T) {
	tests := []struct {
		name     string
		moves    int
		wantView messages.ViewType
	}{
		{name: "search", moves: 0, wantView: messages.ViewSearch},
		{name: "chat", moves: 1, wantView: messages.ViewChat},
		{name: "documents", moves: 2, wantView: messages.ViewDocuments},
		{name: "help", moves: 3, wantView: messages.ViewHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewView(nil)
			v.SetDimensions(80, 24)

			for i := 0; i < tt.moves; i++ {
				v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
			}

			v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
			require.NotNil(t, cmd)

			msg := cmd()
			changed, ok := msg.(messages.ViewChanged)
			require.True(t, ok)
			assert.Equal(t, tt.wantView, changed.View)
		})
	}
}

func TestMenuQuit(t *testing.T) {
	t.Run("quit item", func(t *testing.T) {
		v := NewView(nil)
		v.SetDimensions(80, 24)

		// Navigate to the last item (Quit)
		for i := 0; i < 4; i++ {
			v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
		}

		_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	})

	t.Run("q key", func(t *testing.T) {
		v := NewView(nil)
		v.SetDimensions(80, 24)

		_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	})
}

func TestMenuView(t *testing.T) {
	v := NewView(nil)

	// Not ready until dimensions are set
	assert.Equal(t, "Initialising...", v.View())

	v.SetDimensions(80, 24)
	view := v.View()
	assert.Contains(t, view, "Quarry")
	assert.Contains(t, view, "Search")
	assert.Contains(t, view, "Chat")
	assert.Contains(t, view, "Documents")
	assert.Contains(t, view, "Quit")
}
