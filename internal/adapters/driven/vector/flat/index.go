// Package flat provides a brute-force flat vector index with whole-file
// persistence.
//
// Entries are stored in insertion order; the ID of an entry is its position.
// The index is append-only: deletions leave stale entries in place until a
// full rebuild replaces the file. Distances are squared L2, so lower scores
// mean more similar vectors.
package flat

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
)

// fileMagic identifies the index file format.
const fileMagic uint32 = 0x51565801 // "QVX" v1

var _ driven.VectorIndex = (*Index)(nil)

// Index is a flat, append-only vector index held in memory and persisted to
// a single file on Flush.
type Index struct {
	mu      sync.RWMutex
	path    string
	dims    int
	vectors [][]float32
	dirty   bool
	closed  bool
}

// Open loads the index file at path, or creates an empty index with the
// given dimensionality when the file does not exist. A non-empty existing
// file must match dims.
func Open(path string, dims int) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("flat: invalid dimensions %d: %w", dims, domain.ErrInvalidInput)
	}

	idx := &Index{path: path, dims: dims}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("flat: open %s: %w", path, err)
	}
	defer f.Close()

	if err := idx.load(f); err != nil {
		return nil, fmt.Errorf("flat: load %s: %w", path, err)
	}
	return idx, nil
}

// Size returns the number of entries.
func (i *Index) Size() int64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return int64(len(i.vectors))
}

// Dimensions returns the configured vector dimensionality.
func (i *Index) Dimensions() int {
	return i.dims
}

// AddBatch appends vectors under pre-allocated contiguous IDs.
func (i *Index) AddBatch(_ context.Context, ids []int64, vectors [][]float32) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return domain.ErrIndexClosed
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("flat: %d ids for %d vectors: %w", len(ids), len(vectors), domain.ErrBatchMismatch)
	}
	if len(ids) == 0 {
		return nil
	}

	next := int64(len(i.vectors))
	for n, id := range ids {
		if id != next+int64(n) {
			return fmt.Errorf("flat: id %d at offset %d, expected %d: %w",
				id, n, next+int64(n), domain.ErrIndexInconsistent)
		}
	}
	for n, v := range vectors {
		if len(v) != i.dims {
			return fmt.Errorf("flat: vector %d has %d dims, index has %d: %w",
				n, len(v), i.dims, domain.ErrDimensionMismatch)
		}
	}

	for _, v := range vectors {
		i.vectors = append(i.vectors, append([]float32(nil), v...))
	}
	i.dirty = true
	return nil
}

// Search returns the k nearest entries by squared L2 distance, ascending.
func (i *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, domain.ErrIndexClosed
	}
	if len(query) != i.dims {
		return nil, fmt.Errorf("flat: query has %d dims, index has %d: %w",
			len(query), i.dims, domain.ErrDimensionMismatch)
	}
	if k <= 0 || len(i.vectors) == 0 {
		return nil, nil
	}

	hits := make([]driven.VectorHit, 0, len(i.vectors))
	for id, v := range i.vectors {
		hits = append(hits, driven.VectorHit{ID: int64(id), Score: squaredL2(query, v)})
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score < hits[b].Score
		}
		return hits[a].ID < hits[b].ID
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Flush writes the whole index to disk atomically via a temp file rename.
func (i *Index) Flush() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.flushLocked()
}

func (i *Index) flushLocked() error {
	if i.closed {
		return domain.ErrIndexClosed
	}
	if !i.dirty {
		return nil
	}

	dir := filepath.Dir(i.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("flat: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*")
	if err != nil {
		return fmt.Errorf("flat: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := i.save(w); err != nil {
		tmp.Close()
		return fmt.Errorf("flat: save: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flat: flushing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flat: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), i.path); err != nil {
		return fmt.Errorf("flat: renaming: %w", err)
	}

	i.dirty = false
	return nil
}

// Close flushes and marks the index unusable.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	err := i.flushLocked()
	i.closed = true
	i.vectors = nil
	return err
}

// save writes magic, dims, count, then the flat float32 data.
func (i *Index) save(w io.Writer) error {
	header := []any{fileMagic, uint32(i.dims), uint64(len(i.vectors))}
	for _, h := range header {
		if err := binary.Write(w, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	for _, v := range i.vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func (i *Index) load(f *os.File) error {
	r := bufio.NewReader(f)

	var magic, dims uint32
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return err
	}
	if magic != fileMagic {
		return fmt.Errorf("bad magic %#x: %w", magic, domain.ErrIndexInconsistent)
	}
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return err
	}
	if int(dims) != i.dims {
		return fmt.Errorf("file has %d dims, index configured for %d: %w",
			dims, i.dims, domain.ErrDimensionMismatch)
	}

	i.vectors = make([][]float32, 0, count)
	for n := uint64(0); n < count; n++ {
		v := make([]float32, dims)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("reading vector %d: %w", n, err)
		}
		i.vectors = append(i.vectors, v)
	}
	return nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for n := range a {
		d := float64(a[n]) - float64(b[n])
		sum += d * d
	}
	return sum
}
