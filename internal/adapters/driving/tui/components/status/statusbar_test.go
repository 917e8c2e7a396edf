package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/quarry-cli/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())
	require.NotNil(t, bar)

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Equal(t, 0, bar.ResultCount())
}

func TestNewBarNilDefaults(t *testing.T) {
	bar := NewBar(nil, nil)
	require.NotNil(t, bar)
	assert.NotEmpty(t, bar.View())
}

func TestBarStates(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{name: "ready", state: StateReady, want: "Ready"},
		{name: "searching", state: StateSearching, want: "Searching..."},
		{name: "thinking", state: StateThinking, want: "Thinking..."},
		{name: "error", state: StateError, want: "Error"},
		{name: "help", state: StateHelp, want: "Help"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetState(tt.state)
			assert.Contains(t, bar.View(), tt.want)
		})
	}
}

func TestBarErrorMessage(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("index unavailable")

	assert.Contains(t, bar.View(), "Error: index unavailable")
}

func TestBarResultCount(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateResults)
	bar.SetResultCount(7)

	assert.Contains(t, bar.View(), "7 results")
}

func TestBarClear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")
	bar.SetResultCount(3)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Equal(t, 0, bar.ResultCount())
}

func TestBarWidth(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)
	assert.Equal(t, 120, bar.Width())
}
