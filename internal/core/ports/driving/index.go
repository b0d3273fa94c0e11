package driving

import "context"

// IndexService maintains the vector index.
type IndexService interface {
	// Rebuild clears the index and replays every stored chunk.
	// Returns the number of vectors indexed.
	Rebuild(ctx context.Context) (int, error)

	// Stats reports store and index sizes.
	Stats(ctx context.Context) (IndexStats, error)
}

// IndexStats summarises the stored corpus.
type IndexStats struct {
	Pages   int
	Chunks  int
	Indexed int
}
