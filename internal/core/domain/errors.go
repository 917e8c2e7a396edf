package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested document or fragment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as an
	// empty query or an over-length fragment. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSegmentationUnavailable indicates the segmentation service is
	// unreachable or returned nothing usable. The chunking cascade falls
	// back to the next tier instead of aborting ingestion.
	ErrSegmentationUnavailable = errors.New("segmentation service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable. Fatal for the affected operation: there is
	// no safe substitute for a missing vector.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the generation service is not configured.
	// Tag search degrades to the deterministic matcher; answering fails.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrIndexInconsistent indicates the vector index and the ledger
	// disagree (orphaned or missing mapping). Logged and repaired by an
	// offline reindex, never patched at query time.
	ErrIndexInconsistent = errors.New("vector index inconsistent with ledger")

	// ErrDimensionMismatch indicates a vector's dimensionality differs from
	// the index configuration. A precondition failure, never coerced.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrBatchMismatch indicates an AddBatch call where the vector count
	// differs from the ID count.
	ErrBatchMismatch = errors.New("vector count does not match id count")

	// ErrIndexClosed indicates an operation on a closed vector index.
	ErrIndexClosed = errors.New("vector index closed")

	// ErrUnsupportedType indicates a file type no loader handles.
	ErrUnsupportedType = errors.New("unsupported type")
)
