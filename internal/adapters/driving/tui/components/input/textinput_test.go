package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/styles"
)

func TestNewQueryInput(t *testing.T) {
	q := NewQueryInput(styles.DefaultStyles())
	require.NotNil(t, q)

	assert.Empty(t, q.Value())
	assert.True(t, q.Focused())
}

func TestNewQueryInputNilStyles(t *testing.T) {
	q := NewQueryInput(nil)
	require.NotNil(t, q)
	assert.NotEmpty(t, q.View())
}

func TestQueryInputTyping(t *testing.T) {
	q := NewQueryInput(nil)

	for _, r := range "hello" {
		q, _ = q.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	assert.Equal(t, "hello", q.Value())
}

func TestQueryInputSetValue(t *testing.T) {
	q := NewQueryInput(nil)
	q.SetValue("preset query")
	assert.Equal(t, "preset query", q.Value())

	q.Reset()
	assert.Empty(t, q.Value())
}

func TestQueryInputFocus(t *testing.T) {
	q := NewQueryInput(nil)

	q.Blur()
	assert.False(t, q.Focused())

	q.Focus()
	assert.True(t, q.Focused())
}

func TestQueryInputSetWidth(t *testing.T) {
	q := NewQueryInput(nil)

	q.SetWidth(100)
	assert.Equal(t, 100, q.Width())

	// Narrow widths keep a usable minimum
	q.SetWidth(5)
	assert.Equal(t, 5, q.Width())
}

func TestQueryInputLabel(t *testing.T) {
	q := NewQueryInput(nil)
	q.SetLabel("Ask: ")
	q.SetPlaceholder("Ask a question...")

	assert.Contains(t, q.View(), "Ask:")
}
