package cli

import (
	"bytes"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCmd_Use(t *testing.T) {
	assert.Equal(t, "watch [path]", watchCmd.Use)
}

func TestWatchCmd_HasDebounceFlag(t *testing.T) {
	flag := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, flag)
	assert.Equal(t, "500ms", flag.DefValue)
}

func TestWatchCmd_ErrorsWithoutServices(t *testing.T) {
	cleanup := swapServices(&Services{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"watch", t.TempDir()})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestWatchCmd_RejectsFileTarget(t *testing.T) {
	cleanup := swapServices(&Services{Ingestor: &mockIngestor{}})
	defer cleanup()

	dir := t.TempDir()
	file := dir + "/doc.md"
	require.NoError(t, writeTestFile(file, "# hi"))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"watch", file})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be a directory")
}

func TestAddWatchTree_SkipsHiddenDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeTestDir(dir+"/docs"))
	require.NoError(t, writeTestDir(dir+"/.git"))

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, addWatchTree(watcher, dir))

	assert.Contains(t, watcher.WatchList(), dir)
	assert.Contains(t, watcher.WatchList(), dir+"/docs")
	assert.NotContains(t, watcher.WatchList(), dir+"/.git")
}
