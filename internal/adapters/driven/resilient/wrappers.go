package resilient

import (
	"context"

	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// Ensure the wrappers implement the interfaces.
var (
	_ driven.EmbeddingService = (*Embedder)(nil)
	_ driven.Reranker         = (*Reranker)(nil)
	_ driven.Summarizer       = (*Summarizer)(nil)
	_ driven.PromptStoreAware = (*Summarizer)(nil)
)

// Embedder applies a Policy to an EmbeddingService.
type Embedder struct {
	next driven.EmbeddingService
	call *caller
}

// NewEmbedder wraps next. provider labels metrics and log lines.
func NewEmbedder(provider string, next driven.EmbeddingService, policy Policy) *Embedder {
	return &Embedder{next: next, call: newCaller(provider, policy)}
}

// Embed generates a vector embedding for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := e.call.do(ctx, "embed", func(ctx context.Context) error {
		var err error
		vec, err = e.next.Embed(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch generates embeddings for several texts in one call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := e.call.do(ctx, "embed_batch", func(ctx context.Context) error {
		var err error
		vecs, err = e.next.EmbedBatch(ctx, texts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

// Dimensions returns the wrapped service's vector size.
func (e *Embedder) Dimensions() int { return e.next.Dimensions() }

// ModelName returns the wrapped service's model.
func (e *Embedder) ModelName() string { return e.next.ModelName() }

// Ping is not retried: it reports reachability as-is.
func (e *Embedder) Ping(ctx context.Context) error { return e.next.Ping(ctx) }

// Close releases the wrapped service.
func (e *Embedder) Close() error { return e.next.Close() }

// Reranker applies a Policy to a Reranker.
type Reranker struct {
	next driven.Reranker
	call *caller
}

// NewReranker wraps next.
func NewReranker(provider string, next driven.Reranker, policy Policy) *Reranker {
	return &Reranker{next: next, call: newCaller(provider, policy)}
}

// Rerank scores documents against query.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string) ([]driven.RerankHit, error) {
	var hits []driven.RerankHit
	err := r.call.do(ctx, "rerank", func(ctx context.Context) error {
		var err error
		hits, err = r.next.Rerank(ctx, query, documents)
		return err
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// ModelName returns the wrapped reranker's model.
func (r *Reranker) ModelName() string { return r.next.ModelName() }

// Summarizer applies a Policy to a Summarizer.
type Summarizer struct {
	next driven.Summarizer
	call *caller
}

// NewSummarizer wraps next.
func NewSummarizer(provider string, next driven.Summarizer, policy Policy) *Summarizer {
	return &Summarizer{next: next, call: newCaller(provider, policy)}
}

// Summarise condenses content.
func (s *Summarizer) Summarise(ctx context.Context, content string, maxLength int) (string, error) {
	var summary string
	err := s.call.do(ctx, "summarise", func(ctx context.Context) error {
		var err error
		summary, err = s.next.Summarise(ctx, content, maxLength)
		return err
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}

// ModelName returns the wrapped summariser's model.
func (s *Summarizer) ModelName() string { return s.next.ModelName() }

// Ping is not retried.
func (s *Summarizer) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

// Close releases the wrapped summariser.
func (s *Summarizer) Close() error { return s.next.Close() }

// SetPromptStore forwards the prompt store when the wrapped summariser accepts one.
func (s *Summarizer) SetPromptStore(store driven.PromptStore) {
	if aware, ok := s.next.(driven.PromptStoreAware); ok {
		aware.SetPromptStore(store)
	}
}
