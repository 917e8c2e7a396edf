package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
)

func TestPromptStoreReturnsDefaults(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{driven.PromptSegment, driven.PromptTagRank, driven.PromptAnswerSystem} {
		prompt, err := store.Load(name)
		require.NoError(t, err)
		assert.NotEmpty(t, prompt)
	}
}

func TestPromptStoreCreatesFilesLazily(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// No I/O yet
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))

	_, err = store.Load(driven.PromptSegment)
	require.NoError(t, err)

	_, statErr = os.Stat(filepath.Join(dir, driven.PromptSegment+".txt"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(dir, "README.md"))
	assert.NoError(t, statErr)
}

func TestPromptStoreLoadsCustomFile(t *testing.T) {
	dir := t.TempDir()
	custom := "my custom tag ranking prompt %s %s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, driven.PromptTagRank+".txt"), []byte(custom+"\n"), 0o600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptTagRank)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStoreReloadPicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptSegment)
	require.NoError(t, err)

	edited := "edited %d %s %s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, driven.PromptSegment+".txt"), []byte(edited), 0o600))

	// Cached value is served until Reload.
	cached, err := store.Load(driven.PromptSegment)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptSegment)
	require.NoError(t, err)
	assert.Equal(t, edited, fresh)
}

func TestPromptStoreUnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent")
	require.Error(t, err)
}
