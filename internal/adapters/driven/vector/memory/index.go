// Package memory provides an exact in-process vector index.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	vec  []float32
	norm float64
	seq  uint64
}

// Index is a brute-force cosine index. Search is exact and ties are broken
// by insertion order; replacing a vector keeps its original position.
type Index struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	dimension int
	fixed     bool
	nextSeq   uint64
}

// New creates an index. A dimension of zero is learned from the first Add.
func New(dimension int) *Index {
	return &Index{
		entries:   make(map[string]*entry),
		dimension: max(dimension, 0),
		fixed:     dimension > 0,
	}
}

// Dimension returns the vector size accepted by the index, or zero.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Add inserts or replaces the vector for the given chunk ID.
func (idx *Index) Add(_ context.Context, chunkID string, embedding []float32) error {
	if chunkID == "" {
		return fmt.Errorf("%w: empty chunk id", domain.ErrInvalidInput)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for %s", domain.ErrInvalidInput, chunkID)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension == 0 {
		idx.dimension = len(embedding)
	}
	if len(embedding) != idx.dimension {
		return fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, len(embedding), idx.dimension)
	}

	vec := append([]float32(nil), embedding...)
	if e, ok := idx.entries[chunkID]; ok {
		e.vec = vec
		e.norm = norm(vec)
		return nil
	}
	idx.entries[chunkID] = &entry{vec: vec, norm: norm(vec), seq: idx.nextSeq}
	idx.nextSeq++
	return nil
}

// Delete removes a vector. Missing IDs are a no-op.
func (idx *Index) Delete(_ context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, chunkID)
	return nil
}

// Search returns up to k hits ordered by descending cosine similarity.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.entries) == 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(query), idx.dimension)
	}
	qn := norm(query)

	type scored struct {
		id  string
		sim float64
		seq uint64
	}
	all := make([]scored, 0, len(idx.entries))
	for id, e := range idx.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		all = append(all, scored{id: id, sim: cosine(query, qn, e.vec, e.norm), seq: e.seq})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].sim != all[j].sim {
			return all[i].sim > all[j].sim
		}
		return all[i].seq < all[j].seq
	})

	n := min(k, len(all))
	hits := make([]driven.VectorHit, n)
	for i := range n {
		hits[i] = driven.VectorHit{ChunkID: all[i].id, Similarity: all[i].sim}
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Reset removes every vector. A learned dimension is forgotten.
func (idx *Index) Reset(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]*entry)
	idx.nextSeq = 0
	if !idx.fixed {
		idx.dimension = 0
	}
	return nil
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

// cosine returns 0 when either vector has zero norm.
func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
