package driven

import "context"

// Reranker scores candidate documents against a query.
// This is an optional service - when nil, vector order is kept.
type Reranker interface {
	// Rerank returns scored indices into documents. Providers may omit
	// indices and may return them in any order.
	Rerank(ctx context.Context, query string, documents []string) ([]RerankHit, error)

	// ModelName returns the name of the rerank model being used.
	ModelName() string
}

// RerankHit is one scored candidate.
type RerankHit struct {
	// Index points into the documents passed to Rerank.
	Index int

	// Score is the relevance score; higher is better.
	Score float64
}
