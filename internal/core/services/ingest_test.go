package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/quarry-cli/internal/chunking"
	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

func fixedCascade(tagHints []string) *chunking.Cascade {
	_ = tagHints
	return chunking.NewCascade(chunking.NewFixedSplitter(400))
}

func newTestIngest(t *testing.T, registry *fakeRegistry, cfg IngestConfig) (*IngestService, *memory.Ledger, *fakeIndex) {
	t.Helper()
	ledger := memory.NewLedger()
	index := newFakeIndex(4)
	svc := NewIngestService(registry, fixedCascade, ledger, newFakeEmbedder(4), index, cfg)
	return svc, ledger, index
}

func TestIngestFile(t *testing.T) {
	registry := newFakeRegistry()
	registry.add("notes.txt", "The quick brown fox jumps over the lazy dog.")
	svc, ledger, index := newTestIngest(t, registry, IngestConfig{})

	report, err := svc.IngestFile(context.Background(), "notes.txt")
	require.NoError(t, err)

	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, 1, report.FragmentsEmitted)
	assert.Equal(t, 1, report.FragmentsNew)
	assert.Equal(t, 1, report.VectorsIndexed)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, 1, index.flushes)
	assert.Equal(t, int64(1), index.Size())

	doc, err := ledger.GetDocumentByPath(context.Background(), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.FragmentCount)

	frag, err := ledger.GetFragmentByVectorID(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", frag.Content)
	assert.Equal(t, "notes.txt", frag.Metadata["source"])
	assert.Equal(t, domain.UnscopedKB, frag.Metadata["kb_id"])
}

func TestIngestFileScopeStamping(t *testing.T) {
	registry := newFakeRegistry()
	registry.add("kb.txt", "Scoped content lives here.")
	svc, ledger, _ := newTestIngest(t, registry, IngestConfig{ScopeID: "handbook"})

	_, err := svc.IngestFile(context.Background(), "kb.txt")
	require.NoError(t, err)

	frag, err := ledger.GetFragmentByVectorID(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "handbook", frag.Metadata["kb_id"])
}

func TestIngestFileDeduplicates(t *testing.T) {
	registry := newFakeRegistry()
	registry.add("a.txt", "Identical content.")
	registry.add("b.txt", "Identical content.")
	svc, _, index := newTestIngest(t, registry, IngestConfig{})

	_, err := svc.IngestFile(context.Background(), "a.txt")
	require.NoError(t, err)

	report, err := svc.IngestFile(context.Background(), "b.txt")
	require.NoError(t, err)

	assert.Equal(t, 1, report.FragmentsEmitted)
	assert.Equal(t, 0, report.FragmentsNew)
	assert.Equal(t, 0, report.VectorsIndexed)
	assert.Equal(t, int64(1), index.Size())
}

func TestIngestFileLoadError(t *testing.T) {
	registry := newFakeRegistry()
	svc, _, _ := newTestIngest(t, registry, IngestConfig{})

	_, err := svc.IngestFile(context.Background(), "missing.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestIngestFileEmbedBatchMismatch(t *testing.T) {
	registry := newFakeRegistry()
	registry.add("a.txt", "Some content to embed.")

	embedder := newFakeEmbedder(4)
	embedder.shortBatch = true
	svc := NewIngestService(registry, fixedCascade, memory.NewLedger(), embedder, newFakeIndex(4), IngestConfig{})

	_, err := svc.IngestFile(context.Background(), "a.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBatchMismatch)
}

func TestIngestBatch(t *testing.T) {
	registry := newFakeRegistry()
	registry.add("a.txt", "First document content.")
	registry.add("b.txt", "Second document content.")
	registry.add("c.txt", "Third document content.")
	svc, _, index := newTestIngest(t, registry, IngestConfig{Workers: 2})

	report, err := svc.IngestBatch(context.Background(), []string{"a.txt", "b.txt", "c.txt"})
	require.NoError(t, err)

	assert.Equal(t, 3, report.DocumentsProcessed)
	assert.Equal(t, 3, report.FragmentsNew)
	assert.Equal(t, 3, report.VectorsIndexed)
	assert.Equal(t, 0, report.Errors)

	// The index is flushed once for the whole batch.
	assert.Equal(t, 1, index.flushes)

	// IDs are contiguous even with concurrent documents.
	assert.Equal(t, int64(3), index.Size())
	assert.ElementsMatch(t, []int64{0, 1, 2}, index.ids)
}

func TestIngestBatchCountsFailures(t *testing.T) {
	registry := newFakeRegistry()
	registry.add("good.txt", "Good content survives.")
	registry.errs["bad.txt"] = errors.New("boom")
	svc, _, _ := newTestIngest(t, registry, IngestConfig{Workers: 2})

	report, err := svc.IngestBatch(context.Background(), []string{"good.txt", "bad.txt"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, 1, report.Errors)
}

func TestIngestBatchEmpty(t *testing.T) {
	svc, _, index := newTestIngest(t, newFakeRegistry(), IngestConfig{})

	report, err := svc.IngestBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.DocumentsProcessed)
	assert.Equal(t, 0, index.flushes)
}

func TestReindex(t *testing.T) {
	registry := newFakeRegistry()
	registry.add("a.txt", "Alpha content.")
	registry.add("b.txt", "Beta content.")
	svc, ledger, _ := newTestIngest(t, registry, IngestConfig{})

	_, err := svc.IngestBatch(context.Background(), []string{"a.txt", "b.txt"})
	require.NoError(t, err)

	// Rebuild into a fresh index.
	fresh := newFakeIndex(4)
	rebuilt := NewIngestService(registry, fixedCascade, ledger, newFakeEmbedder(4), fresh, IngestConfig{})

	report, err := rebuilt.Reindex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.FragmentsEmitted)
	assert.Equal(t, 2, report.VectorsIndexed)
	assert.Equal(t, int64(2), fresh.Size())
	assert.Equal(t, 1, fresh.flushes)

	// Every fragment is reachable through its new vector ID.
	for id := int64(0); id < 2; id++ {
		_, err := ledger.GetFragmentByVectorID(context.Background(), id)
		assert.NoError(t, err)
	}
}

func TestReindexRequiresEmptyIndex(t *testing.T) {
	registry := newFakeRegistry()
	registry.add("a.txt", "Alpha content.")
	svc, _, _ := newTestIngest(t, registry, IngestConfig{})

	_, err := svc.IngestFile(context.Background(), "a.txt")
	require.NoError(t, err)

	_, err = svc.Reindex(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexInconsistent)
}

func TestIngestEmbedBatchSize(t *testing.T) {
	registry := newFakeRegistry()
	registry.add("long.txt", "Para one.\n\nPara two.\n\nPara three.")

	embedder := newFakeEmbedder(4)
	svc := NewIngestService(registry, func([]string) *chunking.Cascade {
		// One piece per paragraph.
		return chunking.NewCascade(chunking.NewFixedSplitter(12, chunking.WithOverlap(0)))
	}, memory.NewLedger(), embedder, newFakeIndex(4), IngestConfig{EmbedBatchSize: 2})

	report, err := svc.IngestFile(context.Background(), "long.txt")
	require.NoError(t, err)
	require.Equal(t, 3, report.FragmentsNew)
	assert.Equal(t, []int{2, 1}, embedder.batchSizes)
}

func TestIngestFileRevisionPrunesStale(t *testing.T) {
	registry := newFakeRegistry()
	registry.add("notes.txt", "Alpha.\n\nBeta.\n\nGamma.")

	perParagraph := func([]string) *chunking.Cascade {
		return chunking.NewCascade(chunking.NewFixedSplitter(12, chunking.WithOverlap(0)))
	}
	ledger := memory.NewLedger()
	svc := NewIngestService(registry, perParagraph, ledger, newFakeEmbedder(4), newFakeIndex(4), IngestConfig{})

	_, err := svc.IngestFile(context.Background(), "notes.txt")
	require.NoError(t, err)

	// A revision drops two paragraphs, keeps one at a new position and
	// adds one.
	registry.add("notes.txt", "Beta.\n\nDelta.")
	report, err := svc.IngestFile(context.Background(), "notes.txt")
	require.NoError(t, err)

	assert.Equal(t, 2, report.FragmentsEmitted)
	assert.Equal(t, 1, report.FragmentsNew)

	doc, err := ledger.GetDocumentByPath(context.Background(), "notes.txt")
	require.NoError(t, err)

	frags, err := ledger.ListFragments(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "Beta.", frags[0].Content)
	assert.Equal(t, 0, frags[0].Ordinal)
	assert.Equal(t, "Delta.", frags[1].Content)
	assert.Equal(t, 1, frags[1].Ordinal)
}

func TestIngestFileRepairsPendingDuplicate(t *testing.T) {
	registry := newFakeRegistry()
	registry.add("crash.txt", "Alpha content survived a crash.")
	svc, ledger, _ := newTestIngest(t, registry, IngestConfig{})

	ctx := context.Background()
	docID, err := ledger.UpsertDocument(ctx, &domain.Document{Path: "crash.txt", Title: "crash.txt"})
	require.NoError(t, err)

	// The fragment reached the ledger earlier but never got a vector.
	hash, inserted, err := ledger.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: docID,
		Ordinal:    0,
		Content:    "Alpha content survived a crash.",
	})
	require.NoError(t, err)
	require.True(t, inserted)

	report, err := svc.IngestFile(ctx, "crash.txt")
	require.NoError(t, err)

	assert.Equal(t, 0, report.FragmentsNew)
	assert.Equal(t, 1, report.VectorsIndexed)

	frag, err := ledger.GetFragmentByHash(ctx, hash)
	require.NoError(t, err)
	assert.True(t, frag.HasVector())
}

// pendingAwareLedger counts how often the unindexed-fragment scan runs.
type pendingAwareLedger struct {
	*memory.Ledger
	pendingScans int
}

func (l *pendingAwareLedger) FragmentsMissingVector(ctx context.Context) ([]domain.Fragment, error) {
	l.pendingScans++
	return l.Ledger.FragmentsMissingVector(ctx)
}

func TestReindexScansPendingFragments(t *testing.T) {
	ledger := &pendingAwareLedger{Ledger: memory.NewLedger()}
	ctx := context.Background()

	docID, err := ledger.UpsertDocument(ctx, &domain.Document{Path: "a.txt", Title: "a.txt"})
	require.NoError(t, err)
	_, _, err = ledger.InsertFragmentIfNew(ctx, &domain.Fragment{
		DocumentID: docID,
		Ordinal:    0,
		Content:    "Never indexed.",
	})
	require.NoError(t, err)

	svc := NewIngestService(newFakeRegistry(), fixedCascade, ledger, newFakeEmbedder(4), newFakeIndex(4), IngestConfig{})

	report, err := svc.Reindex(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.pendingScans)
	assert.Equal(t, 1, report.VectorsIndexed)

	frag, err := ledger.GetFragmentByVectorID(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Never indexed.", frag.Content)
}
