package driving

import "context"

// Ingestor coordinates document ingestion into the corpus.
type Ingestor interface {
	// IngestFile runs the full pipeline for one file: load, chunk, dedup,
	// persist, embed, index.
	IngestFile(ctx context.Context, path string) (*IngestReport, error)

	// IngestBatch ingests multiple files, independent units processed with
	// bounded worker concurrency. The vector index is flushed once at the
	// end of the batch.
	IngestBatch(ctx context.Context, paths []string) (*IngestReport, error)

	// Reindex rebuilds the vector index from the ledger, repairing orphaned
	// entries and fragments that never reached a flushed index.
	Reindex(ctx context.Context) (*IngestReport, error)
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// DocumentsProcessed is the count of documents ingested.
	DocumentsProcessed int

	// FragmentsEmitted is the total fragment count across all tiers.
	FragmentsEmitted int

	// FragmentsNew is how many fragments passed the dedup gate.
	FragmentsNew int

	// VectorsIndexed is how many vectors were appended to the index.
	VectorsIndexed int

	// Errors counts documents that failed and were skipped.
	Errors int
}
