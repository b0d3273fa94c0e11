// Package chromem provides a VectorIndex backed by chromem-go.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// CollectionName is the chromem collection holding chunk vectors.
const CollectionName = "chunks"

var collectionMetadata = map[string]string{
	"hnsw:space": "cosine",
}

// Index stores chunk vectors in a chromem collection.
// chromem normalises vectors on insert and scores by dot product, which
// makes similarities cosine. Ties are not ordered by insertion.
// The dimension of a reopened persistent collection is learned on the
// first Add; callers rebuild the index at startup.
type Index struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	dimension  int
}

// New opens an index. An empty path keeps vectors in memory only; otherwise
// the collection is persisted under path.
func New(path string) (*Index, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("%w: open chromem db: %w", domain.ErrVectorIndexUnavailable, err)
		}
	}

	col, err := db.GetOrCreateCollection(CollectionName, collectionMetadata, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open collection: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return &Index{db: db, collection: col}, nil
}

// Add inserts or replaces the vector for the given chunk ID.
func (idx *Index) Add(ctx context.Context, chunkID string, embedding []float32) error {
	if chunkID == "" {
		return fmt.Errorf("%w: empty chunk id", domain.ErrInvalidInput)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for %s", domain.ErrInvalidInput, chunkID)
	}
	if zeroNorm(embedding) {
		return fmt.Errorf("%w: zero vector for %s", domain.ErrInvalidInput, chunkID)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension != 0 && len(embedding) != idx.dimension {
		return fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, len(embedding), idx.dimension)
	}

	doc := chromem.Document{
		ID:        chunkID,
		Embedding: append([]float32(nil), embedding...),
	}
	if err := idx.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: add %s: %w", domain.ErrVectorIndexUnavailable, chunkID, err)
	}
	idx.dimension = len(embedding)
	return nil
}

// Delete removes a vector. Missing IDs are a no-op.
func (idx *Index) Delete(ctx context.Context, chunkID string) error {
	if chunkID == "" {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.collection.Delete(ctx, nil, nil, chunkID); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrVectorIndexUnavailable, chunkID, err)
	}
	return nil
}

// Search returns up to k hits ordered by descending cosine similarity.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := min(k, idx.collection.Count())
	if n <= 0 {
		return []driven.VectorHit{}, nil
	}
	if idx.dimension != 0 && len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(query), idx.dimension)
	}
	if zeroNorm(query) {
		return nil, fmt.Errorf("%w: zero query vector", domain.ErrInvalidInput)
	}

	results, err := idx.collection.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: query: %w", domain.ErrVectorIndexUnavailable, err)
	}

	hits := make([]driven.VectorHit, len(results))
	for i, r := range results {
		hits[i] = driven.VectorHit{ChunkID: r.ID, Similarity: float64(r.Similarity)}
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.collection.Count()
}

// Reset drops and recreates the collection.
func (idx *Index) Reset(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.db.DeleteCollection(CollectionName); err != nil {
		return fmt.Errorf("%w: drop collection: %w", domain.ErrVectorIndexUnavailable, err)
	}
	col, err := idx.db.GetOrCreateCollection(CollectionName, collectionMetadata, nil)
	if err != nil {
		return fmt.Errorf("%w: recreate collection: %w", domain.ErrVectorIndexUnavailable, err)
	}
	idx.collection = col
	idx.dimension = 0
	return nil
}

// Close releases resources. Persistent collections are written on every Add.
func (idx *Index) Close() error {
	return nil
}

func zeroNorm(v []float32) bool {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return s == 0 || math.IsNaN(s) || math.IsInf(s, 0)
}
