package markdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `# Quarry Operations

## Extraction

Stone is cut from the [bench](https://example.com/bench) face.

## Safety

- wear a helmet
- check the blast radius

` + "```go\nfunc ignored() {}\n```" + `

**Bold** text and *italic* text survive as plain words.
`

func TestExtensions(t *testing.T) {
	exts := New().Extensions()
	assert.Contains(t, exts, ".md")
	assert.Contains(t, exts, ".markdown")
}

func TestLoad_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ops-guide.md")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))

	segments, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, segments, 1)

	seg := segments[0]
	assert.Equal(t, "Quarry Operations", seg.Title)
	assert.Equal(t, "markdown", seg.SourceType)
	assert.Equal(t, []string{"Quarry Operations", "Extraction", "Safety"}, seg.TagHints)

	assert.NotContains(t, seg.Text, "#")
	assert.NotContains(t, seg.Text, "```")
	assert.NotContains(t, seg.Text, "**")
	assert.Contains(t, seg.Text, "bench")
	assert.NotContains(t, seg.Text, "https://example.com")
	assert.Contains(t, seg.Text, "Bold text and italic text")
}

func TestExtractTitle_FallbackToFilename(t *testing.T) {
	title := extractTitle("no headings here", "/docs/field_manual.md")
	assert.Equal(t, "field manual", title)
}

func TestHarvestHeadings_Deduplicates(t *testing.T) {
	hints := harvestHeadings("# A\n\n## B\n\n## A\n")
	assert.Equal(t, []string{"A", "B"}, hints)
}
