package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore_CreatesSchema(t *testing.T) {
	store := newTestStore(t)
	assert.NotEmpty(t, store.Path())

	count, err := store.CountFragments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpsertDocument_IdempotentByPath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id1, err := store.UpsertDocument(ctx, &domain.Document{
		Path:       "/kb/notes.txt",
		Title:      "notes",
		SourceType: "file",
		Tags:       []string{"ops"},
	})
	require.NoError(t, err)
	require.Positive(t, id1)

	id2, err := store.UpsertDocument(ctx, &domain.Document{
		Path:       "/kb/notes.txt",
		Title:      "notes v2",
		SourceType: "file",
	})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes v2", docs[0].Title)
}

func TestUpsertDocument_PreservesCreatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &domain.Document{Path: "/kb/a.txt", Title: "a", SourceType: "file"}
	_, err := store.UpsertDocument(ctx, first)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	second := &domain.Document{Path: "/kb/a.txt", Title: "a", SourceType: "file"}
	id, err := store.UpsertDocument(ctx, second)
	require.NoError(t, err)

	got, err := store.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.WithinDuration(t, first.CreatedAt, got.CreatedAt, time.Second)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))
}

func TestGetDocument_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetDocument(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetDocumentByPath(context.Background(), "/absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsertFragmentIfNew_Deduplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, err := store.UpsertDocument(ctx, &domain.Document{Path: "/kb/a.txt", Title: "a", SourceType: "file"})
	require.NoError(t, err)

	frag := &domain.Fragment{
		DocumentID: docID,
		Ordinal:    0,
		Content:    "stone is cut from the bench face",
		Split:      domain.SplitSemantic,
		Tags:       []string{"geology"},
	}
	hash1, inserted, err := store.InsertFragmentIfNew(ctx, frag)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, domain.HashContent(frag.Content), hash1)
	assert.Positive(t, frag.ID)

	// Same trimmed content is a duplicate even with different ordinal.
	dup := &domain.Fragment{
		DocumentID: docID,
		Ordinal:    7,
		Content:    "  stone is cut from the bench face \n",
		Split:      domain.SplitCharacter,
	}
	hash2, inserted, err := store.InsertFragmentIfNew(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, hash1, hash2)

	count, err := store.CountFragments(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestInsertFragmentIfNew_EmptyContent(t *testing.T) {
	store := newTestStore(t)
	_, _, err := store.InsertFragmentIfNew(context.Background(), &domain.Fragment{Content: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFragmentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, err := store.UpsertDocument(ctx, &domain.Document{Path: "/kb/a.md", Title: "a", SourceType: "markdown"})
	require.NoError(t, err)

	frag := &domain.Fragment{
		DocumentID: docID,
		Ordinal:    3,
		Content:    "marble is metamorphosed limestone",
		Split:      domain.SplitQA,
		Tags:       []string{"geology", "rock"},
		Metadata:   map[string]any{"source": "/kb/a.md"},
	}
	hash, inserted, err := store.InsertFragmentIfNew(ctx, frag)
	require.NoError(t, err)
	require.True(t, inserted)

	got, err := store.GetFragmentByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, frag.Content, got.Content)
	assert.Equal(t, domain.SplitQA, got.Split)
	assert.Equal(t, []string{"geology", "rock"}, got.Tags)
	assert.Equal(t, "/kb/a.md", got.Metadata["source"])
	assert.Equal(t, 3, got.Ordinal)
	assert.Nil(t, got.VectorID)
}

func TestSetVectorID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, err := store.UpsertDocument(ctx, &domain.Document{Path: "/kb/a.txt", Title: "a", SourceType: "file"})
	require.NoError(t, err)

	hash, _, err := store.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: docID, Content: "granite", Split: domain.SplitCharacter,
	})
	require.NoError(t, err)

	require.NoError(t, store.SetVectorID(ctx, hash, 42))

	got, err := store.GetFragmentByVectorID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "granite", got.Content)
	require.NotNil(t, got.VectorID)
	assert.EqualValues(t, 42, *got.VectorID)

	missing, err := store.FragmentsMissingVector(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)

	require.NoError(t, store.ClearVectorIDs(ctx))
	missing, err = store.FragmentsMissingVector(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, 1)
}

func TestSetVectorID_UnknownHash(t *testing.T) {
	store := newTestStore(t)
	err := store.SetVectorID(context.Background(), "deadbeef", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteDocument_CascadesFragments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, err := store.UpsertDocument(ctx, &domain.Document{Path: "/kb/a.txt", Title: "a", SourceType: "file"})
	require.NoError(t, err)
	_, _, err = store.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: docID, Content: "slate", Split: domain.SplitCharacter,
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteDocument(ctx, docID))

	count, err := store.CountFragments(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTagVocabulary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, err := store.UpsertDocument(ctx, &domain.Document{
		Path: "/kb/a.txt", Title: "a", SourceType: "file", Tags: []string{"Ops"},
	})
	require.NoError(t, err)

	_, _, err = store.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: docID, Content: "one", Split: domain.SplitSemantic, Tags: []string{"geology", "ops"},
	})
	require.NoError(t, err)
	_, _, err = store.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: docID, Content: "two", Split: domain.SplitSemantic, Tags: []string{"geology"},
	})
	require.NoError(t, err)

	tags, err := store.TagVocabulary(ctx)
	require.NoError(t, err)
	// Case-insensitive dedup, first casing wins.
	assert.Equal(t, []string{"geology", "ops"}, tags)
}

func TestFragmentsByTag(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, err := store.UpsertDocument(ctx, &domain.Document{Path: "/kb/a.txt", Title: "a", SourceType: "file"})
	require.NoError(t, err)

	for i, content := range []string{"alpha", "beta", "gamma"} {
		_, _, err = store.InsertFragmentIfNew(ctx, &domain.Fragment{
			DocumentID: docID, Ordinal: i, Content: content,
			Split: domain.SplitSemantic, Tags: []string{"greek"},
		})
		require.NoError(t, err)
	}
	_, _, err = store.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: docID, Ordinal: 3, Content: "unrelated",
		Split: domain.SplitSemantic, Tags: []string{"misc"},
	})
	require.NoError(t, err)

	frags, err := store.FragmentsByTag(ctx, "greek", 2)
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "alpha", frags[0].Content)
	assert.Equal(t, "beta", frags[1].Content)

	none, err := store.FragmentsByTag(ctx, "latin", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSetFragmentCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, err := store.UpsertDocument(ctx, &domain.Document{Path: "/kb/a.txt", Title: "a", SourceType: "file"})
	require.NoError(t, err)

	require.NoError(t, store.SetFragmentCount(ctx, docID, 12))

	doc, err := store.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, 12, doc.FragmentCount)

	assert.ErrorIs(t, store.SetFragmentCount(ctx, 999, 1), domain.ErrNotFound)
}

func TestInsertFragmentIfNew_RefreshesOrdinal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, err := store.UpsertDocument(ctx, &domain.Document{Path: "/kb/a.txt", Title: "a", SourceType: "file"})
	require.NoError(t, err)
	otherID, err := store.UpsertDocument(ctx, &domain.Document{Path: "/kb/b.txt", Title: "b", SourceType: "file"})
	require.NoError(t, err)

	hash, inserted, err := store.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: docID,
		Ordinal:    2,
		Content:    "the bench face moves with each revision",
	})
	require.NoError(t, err)
	require.True(t, inserted)

	// Re-ingesting the same document moves the fragment to ordinal 0.
	_, inserted, err = store.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: docID,
		Ordinal:    0,
		Content:    "the bench face moves with each revision",
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	frag, err := store.GetFragmentByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, 0, frag.Ordinal)
	assert.Equal(t, docID, frag.DocumentID)

	// A duplicate from another document never steals ownership.
	_, inserted, err = store.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: otherID,
		Ordinal:    5,
		Content:    "the bench face moves with each revision",
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	frag, err = store.GetFragmentByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, 0, frag.Ordinal)
	assert.Equal(t, docID, frag.DocumentID)
}

func TestPruneFragments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, err := store.UpsertDocument(ctx, &domain.Document{Path: "/kb/a.txt", Title: "a", SourceType: "file"})
	require.NoError(t, err)
	otherID, err := store.UpsertDocument(ctx, &domain.Document{Path: "/kb/b.txt", Title: "b", SourceType: "file"})
	require.NoError(t, err)

	var hashes []string
	for i, content := range []string{"first block", "second block", "third block"} {
		hash, _, err := store.InsertFragmentIfNew(ctx, &domain.Fragment{
			DocumentID: docID, Ordinal: i, Content: content,
		})
		require.NoError(t, err)
		hashes = append(hashes, hash)
	}
	_, _, err = store.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: otherID, Ordinal: 0, Content: "untouched neighbour",
	})
	require.NoError(t, err)

	pruned, err := store.PruneFragments(ctx, docID, hashes[1:2])
	require.NoError(t, err)
	assert.Equal(t, 2, pruned)

	frags, err := store.ListFragments(ctx, docID)
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, "second block", frags[0].Content)

	// Other documents keep their fragments.
	frags, err = store.ListFragments(ctx, otherID)
	require.NoError(t, err)
	assert.Len(t, frags, 1)

	// An empty keep set removes every fragment of the document.
	pruned, err = store.PruneFragments(ctx, docID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)
}

func TestFullTextIndexTracksFragments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, err := store.UpsertDocument(ctx, &domain.Document{Path: "/kb/raft.md", Title: "raft", SourceType: "file"})
	require.NoError(t, err)

	_, _, err = store.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: docID, Ordinal: 0, Content: "Raft elects a single leader per term.",
	})
	require.NoError(t, err)
	_, _, err = store.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: docID, Ordinal: 1, Content: "Followers replicate the log.",
	})
	require.NoError(t, err)

	var matches int
	row := store.db.QueryRowContext(ctx,
		`SELECT count(*) FROM fragments_fts WHERE fragments_fts MATCH ?`, "leader")
	require.NoError(t, row.Scan(&matches))
	assert.Equal(t, 1, matches)

	// Deleting the document empties the full-text index as well.
	require.NoError(t, store.DeleteDocument(ctx, docID))

	row = store.db.QueryRowContext(ctx,
		`SELECT count(*) FROM fragments_fts WHERE fragments_fts MATCH ?`, "leader")
	require.NoError(t, row.Scan(&matches))
	assert.Zero(t, matches)
}
