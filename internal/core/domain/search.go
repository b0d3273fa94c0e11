package domain

// QueryOptions configures a query.
type QueryOptions struct {
	// Candidates is how many chunks the vector search returns (N).
	Candidates int

	// Limit is the maximum number of pages returned.
	Limit int

	// Summaries is how many top pages get a summary (M).
	Summaries int
}

// SearchResult is one vector-search candidate carried through reranking.
type SearchResult struct {
	ChunkID     string
	PageURL     string
	Similarity  float64
	RerankScore *float64
}

// Score returns the rerank score when present, otherwise the similarity.
func (r SearchResult) Score() float64 {
	if r.RerankScore != nil {
		return *r.RerankScore
	}
	return r.Similarity
}

// QueryResult is one page shown to the user.
type QueryResult struct {
	// PageURL is the normalised page URL.
	PageURL string

	// Title is the page title.
	Title string

	// Score is the rerank score, or the similarity when reranking was skipped.
	Score float64

	// Similarity is the cosine similarity of the best matching chunk.
	Similarity float64

	// RerankScore is nil when the reranker did not score this page.
	RerankScore *float64

	// Summary is never empty: a provider summary or a truncated prefix.
	Summary string

	// Summarised is true when Summary came from the summariser.
	Summarised bool

	// ChunkID is the best matching chunk.
	ChunkID string
}
