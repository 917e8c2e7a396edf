package domain

import "time"

// SplitKind identifies the chunking strategy that produced a fragment.
type SplitKind string

const (
	// SplitSemantic marks fragments produced by the LLM segmentation tier.
	SplitSemantic SplitKind = "semantic"

	// SplitQA marks fragments produced by the question/answer pattern tier.
	SplitQA SplitKind = "qa"

	// SplitCharacter marks fragments produced by recursive character splitting.
	SplitCharacter SplitKind = "character"

	// SplitFallback marks fragments recovered via the character splitter
	// after a semantic window failed to parse.
	SplitFallback SplitKind = "fallback"
)

// Valid reports whether the split kind is one of the known strategies.
func (s SplitKind) Valid() bool {
	switch s {
	case SplitSemantic, SplitQA, SplitCharacter, SplitFallback:
		return true
	}
	return false
}

// Document represents an ingested source artifact.
// Re-ingesting the same path updates the row in place; it never duplicates.
type Document struct {
	// ID is the ledger row identifier.
	ID int64

	// Path is the unique source location (file path or URI).
	Path string

	// Title is the human-readable title, usually the file name.
	Title string

	// SourceType describes the origin ("file", "markdown", ...).
	SourceType string

	// Tags is the free-form document-level tag list.
	Tags []string

	// FragmentCount is the number of fragments emitted at last ingestion.
	FragmentCount int

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last re-ingested.
	UpdatedAt time.Time
}

// Fragment is a retrievable unit of text derived from a document.
// Fragments are immutable once persisted: changed source text produces a new
// content hash and therefore a new fragment.
type Fragment struct {
	// ID is the ledger row identifier.
	ID int64

	// DocumentID links to the owning Document.
	DocumentID int64

	// Ordinal is the position within the document, unique per document.
	Ordinal int

	// Content is the fragment text, bounded by the configured max length.
	Content string

	// ContentHash is the SHA-256 of the trimmed content, globally unique.
	ContentHash string

	// Split records the strategy that produced this fragment.
	Split SplitKind

	// Tags holds 1..N short category labels.
	Tags []string

	// Metadata carries provenance (source path, title, page).
	Metadata map[string]any

	// VectorID is the position in the vector index, or nil before the
	// fragment has been embedded and flushed.
	VectorID *int64

	// CreatedAt is when the fragment was persisted.
	CreatedAt time.Time
}

// HasVector reports whether the fragment has been assigned an index position.
func (f *Fragment) HasVector() bool {
	return f.VectorID != nil
}
