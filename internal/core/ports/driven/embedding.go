// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from VectorIndex which stores and searches vectors.
// EmbeddingService generates vectors; VectorIndex stores them.
//
// Implementations may include:
//   - Cohere (embed-english-v3.0)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//
// Errors are domain.ErrProviderTimeout, domain.ErrProviderRateLimited,
// *domain.ProviderError or domain.ErrMalformedResponse.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates one embedding per text, in input order.
	// A response whose length or dimensions do not match is reported as
	// domain.ErrMalformedResponse and never padded.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1024, 1536).
	// Zero means unknown until the first response.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingCache stores embeddings keyed by model and text.
type EmbeddingCache interface {
	// Get returns the cached vector and whether it was found.
	Get(ctx context.Context, key string) ([]float32, bool, error)

	// Put stores a vector.
	Put(ctx context.Context, key string, vec []float32) error

	// Close releases resources.
	Close() error
}
