package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
	"github.com/custodia-labs/hask/internal/core/ports/driving"
	"github.com/custodia-labs/hask/internal/logger"
	"github.com/custodia-labs/hask/internal/metrics"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// DefaultSummaryChars bounds summaries and the truncated-prefix fallback.
const DefaultSummaryChars = 280

// candidate is a hydrated vector hit carried through reranking.
type candidate struct {
	result domain.SearchResult
	chunk  *domain.Chunk
	page   *domain.Page
}

// QueryService runs the query pipeline:
// embed -> vector search -> hydrate -> rerank -> collapse -> summarise.
type QueryService struct {
	pages        driven.PageStore
	index        driven.VectorIndex
	embedder     driven.EmbeddingService
	reranker     driven.Reranker
	summarizer   driven.Summarizer
	defaults     domain.QueryOptions
	summaryChars int
}

// QueryOption configures the query service.
type QueryOption func(*QueryService)

// WithQueryDefaults sets the options used for zero fields of a query.
func WithQueryDefaults(opts domain.QueryOptions) QueryOption {
	return func(s *QueryService) {
		s.defaults = opts
	}
}

// WithSummaryChars sets the summary and fallback length.
func WithSummaryChars(n int) QueryOption {
	return func(s *QueryService) {
		if n > 0 {
			s.summaryChars = n
		}
	}
}

// NewQueryService creates a new query service.
// The reranker and summarizer parameters are optional (can be nil).
func NewQueryService(
	pages driven.PageStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	reranker driven.Reranker,
	summarizer driven.Summarizer,
	opts ...QueryOption,
) *QueryService {
	s := &QueryService{
		pages:        pages,
		index:        index,
		embedder:     embedder,
		reranker:     reranker,
		summarizer:   summarizer,
		defaults:     domain.DefaultAppSettings().Query.Options(),
		summaryChars: DefaultSummaryChars,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query answers text with ranked pages.
func (s *QueryService) Query(
	ctx context.Context, text string, opts domain.QueryOptions,
) ([]domain.QueryResult, error) {
	logger.Section("Query", text)
	defer metrics.ObserveSince(metrics.QueryDuration, time.Now())

	text = strings.TrimSpace(text)
	if text == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.QueryResult{}, nil
	}
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.index.Len() == 0 {
		logger.Debug("Index is empty, returning no results")
		return []domain.QueryResult{}, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	opts = s.resolve(opts)
	logger.Debug("Options: candidates=%d limit=%d summaries=%d", opts.Candidates, opts.Limit, opts.Summaries)

	// 1. EMBED
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// 2. VECTOR SEARCH
	hits, err := s.index.Search(ctx, vec, opts.Candidates)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector search returned %d hits", len(hits))

	// 3. HYDRATE
	cands, err := s.hydrate(ctx, hits)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return []domain.QueryResult{}, nil
	}

	// 4. RERANK
	cands = s.rerank(ctx, text, cands)

	// 5. COLLAPSE TO PAGES
	results, sources := collapse(cands, opts.Limit)

	// 6. SUMMARISE
	s.summarise(ctx, results, sources, opts.Summaries)

	logger.Debug("Returning %d results", len(results))
	return results, nil
}

// resolve fills zero options from the defaults and enforces M <= N.
func (s *QueryService) resolve(opts domain.QueryOptions) domain.QueryOptions {
	if opts.Candidates <= 0 {
		opts.Candidates = s.defaults.Candidates
	}
	if opts.Limit <= 0 {
		opts.Limit = s.defaults.Limit
	}
	if opts.Summaries < 0 {
		opts.Summaries = 0
	} else if opts.Summaries == 0 {
		opts.Summaries = s.defaults.Summaries
	}
	opts.Summaries = min(opts.Summaries, opts.Candidates)
	return opts
}

// hydrate maps chunk ids back to chunk text and page.
// Chunks or pages deleted since indexing are skipped.
func (s *QueryService) hydrate(ctx context.Context, hits []driven.VectorHit) ([]candidate, error) {
	cands := make([]candidate, 0, len(hits))
	pages := make(map[string]*domain.Page)

	for _, hit := range hits {
		chunk, err := s.pages.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("Chunk %s no longer stored, skipping", hit.ChunkID)
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
		}

		page, ok := pages[chunk.PageURL]
		if !ok {
			page, err = s.pages.Get(ctx, chunk.PageURL)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("get page %s: %w", chunk.PageURL, err)
			}
			pages[chunk.PageURL] = page
		}

		cands = append(cands, candidate{
			result: domain.SearchResult{
				ChunkID:    hit.ChunkID,
				PageURL:    chunk.PageURL,
				Similarity: hit.Similarity,
			},
			chunk: chunk,
			page:  page,
		})
	}
	return cands, nil
}

// rerank reorders candidates by reranker score. Any failure keeps the
// vector order.
func (s *QueryService) rerank(ctx context.Context, query string, cands []candidate) []candidate {
	if s.reranker == nil {
		logger.Debug("No reranker configured, keeping vector order")
		return cands
	}

	docs := make([]string, len(cands))
	for i, c := range cands {
		docs[i] = c.chunk.Content
	}

	hits, err := s.reranker.Rerank(ctx, query, docs)
	if err == nil {
		var ordered []candidate
		ordered, err = applyRerank(cands, hits)
		if err == nil {
			logger.Debug("Reranked %d candidates (%d scored)", len(cands), len(hits))
			return ordered
		}
	}

	metrics.Degradations.WithLabelValues("rerank").Inc()
	if errors.Is(err, domain.ErrMalformedResponse) {
		logger.Error("Rerank %s: %v", s.reranker.ModelName(), err)
	}
	logger.Degraded("rerank, keeping vector order", err)
	return cands
}

// applyRerank orders candidates by descending score, breaking ties by
// original position. Unscored candidates follow in their original order.
func applyRerank(cands []candidate, hits []driven.RerankHit) ([]candidate, error) {
	seen := make(map[int]bool, len(hits))
	for _, h := range hits {
		if h.Index < 0 || h.Index >= len(cands) {
			return nil, domain.Malformed("rerank", "index %d out of range [0,%d)", h.Index, len(cands))
		}
		if seen[h.Index] {
			return nil, domain.Malformed("rerank", "duplicate index %d", h.Index)
		}
		if math.IsNaN(h.Score) || math.IsInf(h.Score, 0) {
			return nil, domain.Malformed("rerank", "non-finite score for index %d", h.Index)
		}
		seen[h.Index] = true
	}

	sorted := append([]driven.RerankHit(nil), hits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Index < sorted[j].Index
	})

	out := make([]candidate, 0, len(cands))
	for _, h := range sorted {
		c := cands[h.Index]
		score := h.Score
		c.result.RerankScore = &score
		out = append(out, c)
	}
	for i, c := range cands {
		if !seen[i] {
			out = append(out, c)
		}
	}
	return out, nil
}

// collapse keeps the best candidate per page, in order, up to limit.
func collapse(cands []candidate, limit int) ([]domain.QueryResult, []candidate) {
	seen := make(map[string]bool)
	results := make([]domain.QueryResult, 0, min(limit, len(cands)))
	sources := make([]candidate, 0, cap(results))

	for _, c := range cands {
		if len(results) == limit {
			break
		}
		if seen[c.result.PageURL] {
			continue
		}
		seen[c.result.PageURL] = true

		results = append(results, domain.QueryResult{
			PageURL:     c.page.URL,
			Title:       c.page.Title,
			Score:       c.result.Score(),
			Similarity:  c.result.Similarity,
			RerankScore: c.result.RerankScore,
			ChunkID:     c.result.ChunkID,
		})
		sources = append(sources, c)
	}
	return results, sources
}

// summarise fills Summary for every result. The top m are summarised
// concurrently; the rest carry a snippet of the matching chunk.
func (s *QueryService) summarise(ctx context.Context, results []domain.QueryResult, sources []candidate, m int) {
	var g errgroup.Group
	for i := range results {
		if i >= m || s.summarizer == nil {
			results[i].Summary = truncatePrefix(s.snippetSource(sources[i], i < m), s.summaryChars)
			continue
		}
		g.Go(func() error {
			results[i].Summary, results[i].Summarised = s.summariseOne(ctx, sources[i].page.Content)
			return nil
		})
	}
	_ = g.Wait()
}

// summariseOne calls the summariser and falls back to a truncated prefix.
func (s *QueryService) summariseOne(ctx context.Context, content string) (string, bool) {
	summary, err := s.summarizer.Summarise(ctx, content, s.summaryChars)
	summary = strings.TrimSpace(summary)
	if err == nil && summary != "" {
		return summary, true
	}
	if err == nil {
		err = errors.New("empty summary")
	}

	metrics.Degradations.WithLabelValues("summary").Inc()
	logger.Degraded("summary, using prefix", err)
	return truncatePrefix(content, s.summaryChars), false
}

// snippetSource picks the text for an unsummarised card: the page prefix
// for top results when no summariser is configured, the chunk otherwise.
func (s *QueryService) snippetSource(c candidate, top bool) string {
	if top && strings.TrimSpace(c.page.Content) != "" {
		return c.page.Content
	}
	return c.chunk.Content
}
