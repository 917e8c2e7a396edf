package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()
	require.NotNil(t, theme)

	assert.Equal(t, lipgloss.Color("#D97706"), theme.Primary)
	assert.Equal(t, lipgloss.Color("#0EA5E9"), theme.Secondary)
	assert.NotEmpty(t, theme.Error)
	assert.NotEmpty(t, theme.Border)
}

func TestNewStyles(t *testing.T) {
	t.Run("with theme", func(t *testing.T) {
		theme := DefaultTheme()
		s := NewStyles(theme)
		require.NotNil(t, s)
		assert.Equal(t, theme, s.Theme())
	})

	t.Run("nil theme falls back to default", func(t *testing.T) {
		s := NewStyles(nil)
		require.NotNil(t, s)
		assert.NotNil(t, s.Theme())
	})
}

func TestDefaultStyles(t *testing.T) {
	s := DefaultStyles()
	require.NotNil(t, s)

	// Styles should render without panicking
	assert.NotEmpty(t, s.Title.Render("title"))
	assert.NotEmpty(t, s.Error.Render("error"))
	assert.NotEmpty(t, s.Selected.Render("selected"))
	assert.NotEmpty(t, s.StatusBar.Render("status"))
}
