package driven

import "context"

// VectorIndex provides cosine similarity search over chunk embeddings.
// It is a derived cache: chunks in the PageStore are the source of truth
// and the index can be rebuilt from them at any time.
type VectorIndex interface {
	// Add inserts or replaces the vector for the given chunk ID.
	Add(ctx context.Context, chunkID string, embedding []float32) error

	// Delete removes a vector from the index. Missing IDs are a no-op.
	Delete(ctx context.Context, chunkID string) error

	// Search returns up to k hits ordered by descending cosine similarity.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Reset removes every vector.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score (-1 to 1).
	Similarity float64
}
