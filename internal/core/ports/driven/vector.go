package driven

import "context"

// VectorIndex is an append-only vector store. The i-th entry corresponds to
// the i-th fragment ever embedded, in insertion order; deletion is not
// supported and stale entries stay inert until a full reindex.
type VectorIndex interface {
	// Size returns the number of entries. The next allocated ID is always
	// the current size.
	Size() int64

	// AddBatch appends vectors under pre-allocated IDs. The call fails when
	// the vector count differs from the ID count, when the IDs are not the
	// contiguous range starting at Size(), or when any vector's
	// dimensionality differs from the index configuration.
	AddBatch(ctx context.Context, ids []int64, vectors [][]float32) error

	// Search returns the k nearest entries to the query vector, ascending
	// by distance (lower = more similar).
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Flush writes the index to durable storage as one unit. There is no
	// partial-write API.
	Flush() error

	// Dimensions returns the configured vector dimensionality.
	Dimensions() int

	// Close flushes and releases resources.
	Close() error
}

// VectorHit is one similarity search result.
type VectorHit struct {
	// ID is the entry's index position.
	ID int64

	// Score is the distance to the query (lower = more similar).
	Score float64
}
