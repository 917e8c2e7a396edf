package driven

import (
	"context"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

// Ledger is the relational store of documents and fragments.
// It owns content-hash based deduplication: InsertFragmentIfNew is the single
// gate that decides whether a fragment is forwarded to the vector index.
type Ledger interface {
	// UpsertDocument stores a document, idempotent by path: an existing row
	// is updated in place, never duplicated. Returns the document ID.
	UpsertDocument(ctx context.Context, doc *domain.Document) (int64, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// GetDocumentByPath retrieves a document by its unique path.
	GetDocumentByPath(ctx context.Context, path string) (*domain.Document, error)

	// ListDocuments returns all documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// SetFragmentCount records the number of fragments emitted for a document.
	SetFragmentCount(ctx context.Context, documentID int64, count int) error

	// DeleteDocument removes a document; its fragments cascade.
	DeleteDocument(ctx context.Context, id int64) error

	// InsertFragmentIfNew computes the content hash over the trimmed content
	// and persists the fragment unless a fragment with that hash exists
	// anywhere in the ledger. A duplicate owned by the same document has its
	// ordinal refreshed so re-ingesting a revised document keeps ordinals
	// current. Returns the hash and whether a row was inserted.
	InsertFragmentIfNew(ctx context.Context, frag *domain.Fragment) (hash string, inserted bool, err error)

	// PruneFragments deletes the document's fragments whose content hash is
	// not in keep, removing rows orphaned by a document revision. Returns
	// the number of rows deleted.
	PruneFragments(ctx context.Context, documentID int64, keep []string) (int, error)

	// GetFragmentByHash retrieves a fragment by content hash.
	GetFragmentByHash(ctx context.Context, hash string) (*domain.Fragment, error)

	// GetFragmentByVectorID retrieves the fragment assigned a vector index
	// position.
	GetFragmentByVectorID(ctx context.Context, vectorID int64) (*domain.Fragment, error)

	// ListFragments returns a document's fragments ordered by ordinal.
	ListFragments(ctx context.Context, documentID int64) ([]domain.Fragment, error)

	// SetVectorID records the vector index position on a fragment.
	SetVectorID(ctx context.Context, hash string, vectorID int64) error

	// ClearVectorIDs unsets every vector assignment, used before a reindex.
	ClearVectorIDs(ctx context.Context) error

	// FragmentsMissingVector returns fragments that reached the ledger but
	// were never assigned an index position, the recoverable inconsistency
	// a reindex pass repairs.
	FragmentsMissingVector(ctx context.Context) ([]domain.Fragment, error)

	// AllFragments returns every fragment ordered by document then ordinal.
	AllFragments(ctx context.Context) ([]domain.Fragment, error)

	// CountFragments returns the total fragment count.
	CountFragments(ctx context.Context) (int64, error)

	// TagVocabulary returns the deduplicated, case-normalized set of tags
	// currently present across fragments and documents. Recomputed on
	// demand, not persisted.
	TagVocabulary(ctx context.Context) ([]string, error)

	// FragmentsByTag returns fragments carrying the given tag, capped at
	// limit, ordered by document then ordinal.
	FragmentsByTag(ctx context.Context, tag string, limit int) ([]domain.Fragment, error)

	// Close releases the underlying storage.
	Close() error
}
