package driven

import "context"

// Loader reads a source file and yields an ordered sequence of raw text
// segments with provenance metadata. Each loader handles specific file
// extensions.
type Loader interface {
	// Extensions returns the file extensions this loader handles,
	// lower-case with leading dot (".txt", ".md").
	Extensions() []string

	// Load reads the file and returns its segments in source order.
	Load(ctx context.Context, path string) ([]Segment, error)
}

// Segment is one raw text unit produced by a loader.
type Segment struct {
	// Text is the raw segment content.
	Text string

	// Title is the human-readable document title (usually the file name).
	Title string

	// SourceType describes the origin format ("file", "markdown").
	SourceType string

	// TagHints are candidate tags harvested from the source structure,
	// such as markdown headings.
	TagHints []string
}

// LoaderRegistry selects a loader by file extension.
type LoaderRegistry interface {
	// Load resolves a loader for path and runs it.
	// Returns domain.ErrUnsupportedType (wrapped) for unknown extensions.
	Load(ctx context.Context, path string) ([]Segment, error)
}
