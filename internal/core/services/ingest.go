package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/quarry-cli/internal/chunking"
	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quarry-cli/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// DefaultEmbedBatchSize is how many fragments are embedded per API call.
const DefaultEmbedBatchSize = 16

// CascadeFactory builds a chunking cascade for one document. The factory is
// called per document so loader-harvested tag hints reach the semantic tier.
type CascadeFactory func(tagHints []string) *chunking.Cascade

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	// EmbedBatchSize caps fragments per embedding call (default 16).
	EmbedBatchSize int

	// Workers is the concurrent document limit for batch ingestion
	// (default 1, sequential).
	Workers int

	// ScopeID stamps every fragment with a knowledge base identifier.
	// Empty means domain.UnscopedKB.
	ScopeID string
}

// IngestService runs the ingestion pipeline: load, chunk, dedup, embed,
// index. Documents are independent units; one failing document never aborts
// the batch.
type IngestService struct {
	loaders    driven.LoaderRegistry
	newCascade CascadeFactory
	ledger     driven.Ledger
	embedder   driven.EmbeddingService
	index      driven.VectorIndex
	cfg        IngestConfig

	// indexMu serialises vector ID allocation against index appends.
	indexMu sync.Mutex
}

// NewIngestService creates the ingestion service.
func NewIngestService(
	loaders driven.LoaderRegistry,
	newCascade CascadeFactory,
	ledger driven.Ledger,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	cfg IngestConfig,
) *IngestService {
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ScopeID == "" {
		cfg.ScopeID = domain.UnscopedKB
	}
	return &IngestService{
		loaders:    loaders,
		newCascade: newCascade,
		ledger:     ledger,
		embedder:   embedder,
		index:      index,
		cfg:        cfg,
	}
}

// IngestFile runs the full pipeline for one file and flushes the index.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*driving.IngestReport, error) {
	report := &driving.IngestReport{}
	if err := s.ingestOne(ctx, path, report); err != nil {
		return report, err
	}
	if err := s.index.Flush(); err != nil {
		return report, fmt.Errorf("flush index: %w", err)
	}
	return report, nil
}

// IngestBatch ingests files with bounded worker concurrency and flushes the
// index once at the end. Per-document failures are counted, not fatal.
func (s *IngestService) IngestBatch(ctx context.Context, paths []string) (*driving.IngestReport, error) {
	report := &driving.IngestReport{}
	if len(paths) == 0 {
		return report, nil
	}

	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return report, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, path := range paths {
		path := path
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			local := &driving.IngestReport{}
			if err := s.ingestOne(ctx, path, local); err != nil {
				logger.Warn("Skipping %s: %v", path, err)
				local.Errors++
			}

			mu.Lock()
			report.DocumentsProcessed += local.DocumentsProcessed
			report.FragmentsEmitted += local.FragmentsEmitted
			report.FragmentsNew += local.FragmentsNew
			report.VectorsIndexed += local.VectorsIndexed
			report.Errors += local.Errors
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			report.Errors++
			mu.Unlock()
		}
	}
	wg.Wait()

	if err := s.index.Flush(); err != nil {
		return report, fmt.Errorf("flush index: %w", err)
	}

	logger.Info("Batch done: %d documents, %d new fragments, %d vectors, %d errors",
		report.DocumentsProcessed, report.FragmentsNew, report.VectorsIndexed, report.Errors)
	return report, nil
}

// Reindex rebuilds vector assignments from the ledger in document order.
// It requires a fresh, empty index; the caller replaces the old index file
// before invoking it.
func (s *IngestService) Reindex(ctx context.Context) (*driving.IngestReport, error) {
	report := &driving.IngestReport{}

	if size := s.index.Size(); size != 0 {
		return report, fmt.Errorf("reindex needs an empty index, found %d entries: %w",
			size, domain.ErrIndexInconsistent)
	}

	pending, err := s.ledger.FragmentsMissingVector(ctx)
	if err != nil {
		return report, fmt.Errorf("list unindexed fragments: %w", err)
	}
	if len(pending) > 0 {
		logger.Info("Repairing %d fragments that never received vectors", len(pending))
	}

	if err := s.ledger.ClearVectorIDs(ctx); err != nil {
		return report, fmt.Errorf("clear vector ids: %w", err)
	}

	frags, err := s.ledger.AllFragments(ctx)
	if err != nil {
		return report, fmt.Errorf("list fragments: %w", err)
	}
	report.FragmentsEmitted = len(frags)

	if err := s.embedAndIndex(ctx, frags, report); err != nil {
		return report, err
	}
	if err := s.index.Flush(); err != nil {
		return report, fmt.Errorf("flush index: %w", err)
	}

	logger.Info("Reindexed %d fragments", report.VectorsIndexed)
	return report, nil
}

// ingestOne processes a single file into the ledger and index.
func (s *IngestService) ingestOne(ctx context.Context, path string, report *driving.IngestReport) error {
	segments, err := s.loaders.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	for _, seg := range segments {
		if err := s.ingestSegment(ctx, path, seg, report); err != nil {
			return err
		}
	}
	report.DocumentsProcessed++
	return nil
}

func (s *IngestService) ingestSegment(ctx context.Context, path string, seg driven.Segment, report *driving.IngestReport) error {
	title := seg.Title
	if title == "" {
		title = filepath.Base(path)
	}

	docID, err := s.ledger.UpsertDocument(ctx, &domain.Document{
		Path:       path,
		Title:      title,
		SourceType: seg.SourceType,
		Tags:       seg.TagHints,
	})
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	pieces, err := s.newCascade(seg.TagHints).Run(ctx, seg.Text)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	report.FragmentsEmitted += len(pieces)

	var toEmbed []domain.Fragment
	keep := make([]string, 0, len(pieces))
	newCount := 0
	for ordinal, piece := range pieces {
		frag := domain.Fragment{
			DocumentID: docID,
			Ordinal:    ordinal,
			Content:    piece.Text,
			Split:      piece.Split,
			Tags:       piece.Tags,
			Metadata: map[string]any{
				"source": path,
				"title":  title,
				"kb_id":  s.cfg.ScopeID,
			},
		}
		hash, inserted, err := s.ledger.InsertFragmentIfNew(ctx, &frag)
		if err != nil {
			return fmt.Errorf("insert fragment %d: %w", ordinal, err)
		}
		keep = append(keep, hash)
		if inserted {
			newCount++
			toEmbed = append(toEmbed, frag)
			continue
		}

		// A duplicate may still be waiting for a vector if an earlier run
		// crashed between insert and index append. Pick it up here.
		existing, err := s.ledger.GetFragmentByHash(ctx, hash)
		if err != nil {
			return fmt.Errorf("load duplicate fragment %d: %w", ordinal, err)
		}
		if !existing.HasVector() {
			toEmbed = append(toEmbed, *existing)
		}
	}
	report.FragmentsNew += newCount

	// Rows from a previous revision of this document whose content no
	// longer appears are removed; their vectors stay orphaned until the
	// next reindex.
	pruned, err := s.ledger.PruneFragments(ctx, docID, keep)
	if err != nil {
		return fmt.Errorf("prune stale fragments: %w", err)
	}

	if err := s.ledger.SetFragmentCount(ctx, docID, len(pieces)); err != nil {
		return fmt.Errorf("set fragment count: %w", err)
	}

	logger.Debug("%s: %d fragments, %d new, %d pruned", path, len(pieces), newCount, pruned)
	return s.embedAndIndex(ctx, toEmbed, report)
}

// embedAndIndex embeds fragments in bounded batches and appends them to the
// index under contiguous IDs. ID allocation and the append happen inside one
// critical section so concurrent documents never interleave assignments.
func (s *IngestService) embedAndIndex(ctx context.Context, frags []domain.Fragment, report *driving.IngestReport) error {
	for start := 0; start < len(frags); start += s.cfg.EmbedBatchSize {
		end := start + s.cfg.EmbedBatchSize
		if end > len(frags) {
			end = len(frags)
		}
		batch := frags[start:end]

		texts := make([]string, len(batch))
		for i, f := range batch {
			texts[i] = f.Content
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%d vectors for %d fragments: %w",
				len(vectors), len(batch), domain.ErrBatchMismatch)
		}

		s.indexMu.Lock()
		nextID := s.index.Size()
		ids := make([]int64, len(batch))
		for i := range batch {
			ids[i] = nextID + int64(i)
		}
		err = s.index.AddBatch(ctx, ids, vectors)
		s.indexMu.Unlock()
		if err != nil {
			return fmt.Errorf("index batch: %w", err)
		}

		// Record assignments only after the append succeeded. A crash
		// between append and record leaves fragments without vector IDs,
		// which Reindex repairs.
		for i, f := range batch {
			if err := s.ledger.SetVectorID(ctx, f.ContentHash, ids[i]); err != nil {
				return fmt.Errorf("record vector id: %w", err)
			}
		}
		report.VectorsIndexed += len(batch)
	}
	return nil
}
