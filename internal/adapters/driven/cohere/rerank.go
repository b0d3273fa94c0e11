package cohere

import (
	"context"

	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// Reranker scores candidates with /rerank.
type Reranker struct {
	client *Client
	model  string
}

type rerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// NewReranker creates a reranker for model.
func NewReranker(client *Client, model string) *Reranker {
	if model == "" {
		model = DefaultRerankModel
	}
	return &Reranker{client: client, model: model}
}

// Rerank returns the provider's scores as reported. Validation of indices
// and ordering is left to the caller.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string) ([]driven.RerankHit, error) {
	if len(documents) == 0 {
		return []driven.RerankHit{}, nil
	}

	var resp rerankResponse
	err := r.client.post(ctx, "/rerank", rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
		TopN:      len(documents),
	}, &resp)
	if err != nil {
		return nil, err
	}

	hits := make([]driven.RerankHit, len(resp.Results))
	for i, res := range resp.Results {
		hits[i] = driven.RerankHit{Index: res.Index, Score: res.RelevanceScore}
	}
	return hits, nil
}

// ModelName returns the rerank model.
func (r *Reranker) ModelName() string {
	return r.model
}
