// Package memory provides in-memory implementations of driven port
// interfaces, used in tests and as lightweight defaults.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
)

// Ensure Ledger implements the interface.
var _ driven.Ledger = (*Ledger)(nil)

// Ledger is an in-memory ledger of documents and fragments.
type Ledger struct {
	mu        sync.RWMutex
	nextDocID int64
	nextFrag  int64
	docs      map[int64]*domain.Document
	byPath    map[string]int64
	frags     map[string]*domain.Fragment // keyed by content hash
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		docs:   make(map[int64]*domain.Document),
		byPath: make(map[string]int64),
		frags:  make(map[string]*domain.Fragment),
	}
}

// UpsertDocument stores a document, keyed by path.
func (l *Ledger) UpsertDocument(_ context.Context, doc *domain.Document) (int64, error) {
	if doc == nil || doc.Path == "" {
		return 0, fmt.Errorf("upserting document: %w", domain.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()
	if id, ok := l.byPath[doc.Path]; ok {
		existing := l.docs[id]
		existing.Title = doc.Title
		existing.SourceType = doc.SourceType
		existing.Tags = append([]string(nil), doc.Tags...)
		existing.UpdatedAt = now
		doc.ID = id
		doc.CreatedAt = existing.CreatedAt
		doc.UpdatedAt = now
		return id, nil
	}

	l.nextDocID++
	doc.ID = l.nextDocID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	stored := *doc
	stored.Tags = append([]string(nil), doc.Tags...)
	l.docs[doc.ID] = &stored
	l.byPath[doc.Path] = doc.ID
	return doc.ID, nil
}

// GetDocument retrieves a document by ID.
func (l *Ledger) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	doc, ok := l.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

// GetDocumentByPath retrieves a document by its unique path.
func (l *Ledger) GetDocumentByPath(_ context.Context, path string) (*domain.Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byPath[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *l.docs[id]
	return &copied, nil
}

// ListDocuments returns all documents ordered by path.
func (l *Ledger) ListDocuments(_ context.Context) ([]domain.Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	docs := make([]domain.Document, 0, len(l.docs))
	for _, doc := range l.docs {
		docs = append(docs, *doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// SetFragmentCount records the number of fragments emitted for a document.
func (l *Ledger) SetFragmentCount(_ context.Context, documentID int64, count int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, ok := l.docs[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	doc.FragmentCount = count
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteDocument removes a document and its fragments.
func (l *Ledger) DeleteDocument(_ context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, ok := l.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(l.byPath, doc.Path)
	delete(l.docs, id)
	for hash, frag := range l.frags {
		if frag.DocumentID == id {
			delete(l.frags, hash)
		}
	}
	return nil
}

// InsertFragmentIfNew persists the fragment unless its content hash exists.
// A duplicate owned by the same document has its ordinal refreshed in place.
func (l *Ledger) InsertFragmentIfNew(_ context.Context, frag *domain.Fragment) (string, bool, error) {
	if frag == nil || strings.TrimSpace(frag.Content) == "" {
		return "", false, fmt.Errorf("inserting fragment: %w", domain.ErrInvalidInput)
	}

	hash := domain.HashContent(frag.Content)
	frag.ContentHash = hash

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.frags[hash]; ok {
		if existing.DocumentID == frag.DocumentID {
			existing.Ordinal = frag.Ordinal
		}
		return hash, false, nil
	}

	l.nextFrag++
	frag.ID = l.nextFrag
	if frag.CreatedAt.IsZero() {
		frag.CreatedAt = time.Now().UTC()
	}

	stored := *frag
	stored.Tags = append([]string(nil), frag.Tags...)
	l.frags[hash] = &stored
	return hash, true, nil
}

// PruneFragments deletes the document's fragments whose content hash is not
// in keep.
func (l *Ledger) PruneFragments(_ context.Context, documentID int64, keep []string) (int, error) {
	keepSet := make(map[string]bool, len(keep))
	for _, hash := range keep {
		keepSet[hash] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pruned := 0
	for hash, frag := range l.frags {
		if frag.DocumentID == documentID && !keepSet[hash] {
			delete(l.frags, hash)
			pruned++
		}
	}
	return pruned, nil
}

// GetFragmentByHash retrieves a fragment by content hash.
func (l *Ledger) GetFragmentByHash(_ context.Context, hash string) (*domain.Fragment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	frag, ok := l.frags[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *frag
	return &copied, nil
}

// GetFragmentByVectorID retrieves the fragment assigned an index position.
func (l *Ledger) GetFragmentByVectorID(_ context.Context, vectorID int64) (*domain.Fragment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, frag := range l.frags {
		if frag.VectorID != nil && *frag.VectorID == vectorID {
			copied := *frag
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListFragments returns a document's fragments ordered by ordinal.
func (l *Ledger) ListFragments(_ context.Context, documentID int64) ([]domain.Fragment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var frags []domain.Fragment
	for _, frag := range l.frags {
		if frag.DocumentID == documentID {
			frags = append(frags, *frag)
		}
	}
	sort.Slice(frags, func(i, j int) bool { return frags[i].Ordinal < frags[j].Ordinal })
	return frags, nil
}

// SetVectorID records the vector index position on a fragment.
func (l *Ledger) SetVectorID(_ context.Context, hash string, vectorID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	frag, ok := l.frags[hash]
	if !ok {
		return domain.ErrNotFound
	}
	v := vectorID
	frag.VectorID = &v
	return nil
}

// ClearVectorIDs unsets every vector assignment.
func (l *Ledger) ClearVectorIDs(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, frag := range l.frags {
		frag.VectorID = nil
	}
	return nil
}

// FragmentsMissingVector returns fragments never assigned an index position.
func (l *Ledger) FragmentsMissingVector(context.Context) ([]domain.Fragment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var frags []domain.Fragment
	for _, frag := range l.frags {
		if frag.VectorID == nil {
			frags = append(frags, *frag)
		}
	}
	sortByDocumentOrdinal(frags)
	return frags, nil
}

// AllFragments returns every fragment ordered by document then ordinal.
func (l *Ledger) AllFragments(context.Context) ([]domain.Fragment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	frags := make([]domain.Fragment, 0, len(l.frags))
	for _, frag := range l.frags {
		frags = append(frags, *frag)
	}
	sortByDocumentOrdinal(frags)
	return frags, nil
}

// CountFragments returns the total fragment count.
func (l *Ledger) CountFragments(context.Context) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.frags)), nil
}

// TagVocabulary returns the distinct tag set across fragments and documents.
func (l *Ledger) TagVocabulary(context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]bool)
	var tags []string
	collect := func(list []string) {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			key := strings.ToLower(tag)
			if tag == "" || seen[key] {
				continue
			}
			seen[key] = true
			tags = append(tags, tag)
		}
	}

	frags := make([]domain.Fragment, 0, len(l.frags))
	for _, frag := range l.frags {
		frags = append(frags, *frag)
	}
	sortByDocumentOrdinal(frags)
	for _, frag := range frags {
		collect(frag.Tags)
	}
	for _, doc := range l.docs {
		collect(doc.Tags)
	}

	sort.Strings(tags)
	return tags, nil
}

// FragmentsByTag returns fragments carrying the given tag, capped at limit.
func (l *Ledger) FragmentsByTag(_ context.Context, tag string, limit int) ([]domain.Fragment, error) {
	if limit <= 0 {
		limit = 5
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var frags []domain.Fragment
	for _, frag := range l.frags {
		for _, t := range frag.Tags {
			if strings.EqualFold(t, tag) {
				frags = append(frags, *frag)
				break
			}
		}
	}
	sortByDocumentOrdinal(frags)
	if len(frags) > limit {
		frags = frags[:limit]
	}
	return frags, nil
}

// Close is a no-op for the in-memory ledger.
func (l *Ledger) Close() error {
	return nil
}

func sortByDocumentOrdinal(frags []domain.Fragment) {
	sort.Slice(frags, func(i, j int) bool {
		if frags[i].DocumentID != frags[j].DocumentID {
			return frags[i].DocumentID < frags[j].DocumentID
		}
		return frags[i].Ordinal < frags[j].Ordinal
	})
}
