package services

import (
	"context"
	"errors"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"

	"github.com/custodia-labs/hask/internal/adapters/driven/storage/memory"
	vectormemory "github.com/custodia-labs/hask/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
	"github.com/custodia-labs/hask/internal/postprocessors/chunker"
)

const testDims = 64

var testWordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// bowEmbedder hashes lowercase tokens into a fixed-size count vector, so
// texts sharing words are similar and identical texts have similarity 1.
type bowEmbedder struct {
	mu        sync.Mutex
	calls     int
	texts     int
	err       error
	dropLast  bool
	badDimsAt int
}

func newBowEmbedder() *bowEmbedder {
	return &bowEmbedder{badDimsAt: -1}
}

func bowVector(text string) []float32 {
	vec := make([]float32, testDims)
	for _, tok := range testWordRe.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%testDims]++
	}
	return vec
}

func (e *bowEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return bowVector(text), nil
}

func (e *bowEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.texts += len(texts)
	err, dropLast, badDimsAt := e.err, e.dropLast, e.badDimsAt
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bowVector(t)
		if i == badDimsAt {
			out[i] = out[i][:testDims/2]
		}
	}
	if dropLast && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *bowEmbedder) Dimensions() int              { return testDims }
func (e *bowEmbedder) ModelName() string            { return "bow-test" }
func (e *bowEmbedder) Ping(_ context.Context) error { return nil }
func (e *bowEmbedder) Close() error                 { return nil }

func (e *bowEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// stubReranker returns scripted hits or an error.
type stubReranker struct {
	hits  []driven.RerankHit
	err   error
	calls int
}

func (r *stubReranker) Rerank(_ context.Context, _ string, _ []string) ([]driven.RerankHit, error) {
	r.calls++
	return r.hits, r.err
}

func (r *stubReranker) ModelName() string { return "stub-rerank" }

// stubSummarizer summarises by prefixing, or fails.
type stubSummarizer struct {
	mu     sync.Mutex
	err    error
	output string
	calls  int
}

func (s *stubSummarizer) Summarise(_ context.Context, content string, _ int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if s.output != "" {
		return s.output, nil
	}
	return "summary: " + content, nil
}

func (s *stubSummarizer) ModelName() string            { return "stub-summary" }
func (s *stubSummarizer) Ping(_ context.Context) error { return nil }
func (s *stubSummarizer) Close() error                 { return nil }

func (s *stubSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var errIndexFull = errors.New("index full")

// flakyIndex fails Add once failAfter vectors have been added. With once
// set it fails a single time and then accepts everything.
type flakyIndex struct {
	*vectormemory.Index
	mu        sync.Mutex
	added     int
	failAfter int
	once      bool
}

func (f *flakyIndex) Add(ctx context.Context, id string, vec []float32) error {
	f.mu.Lock()
	if f.failAfter >= 0 && f.added >= f.failAfter {
		if f.once {
			f.failAfter = -1
		}
		f.mu.Unlock()
		return errIndexFull
	}
	f.added++
	f.mu.Unlock()
	return f.Index.Add(ctx, id, vec)
}

func (f *flakyIndex) failNext(after int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAfter = f.added + after
	f.once = true
}

// ids returns every chunk id currently in the index.
func (f *flakyIndex) ids(ctx context.Context) map[string]bool {
	hits, _ := f.Index.Search(ctx, make([]float32, testDims), f.Len()+1)
	ids := make(map[string]bool, len(hits))
	for _, h := range hits {
		ids[h.ChunkID] = true
	}
	return ids
}

// reversedIndex returns search hits in reverse similarity order.
type reversedIndex struct {
	*vectormemory.Index
}

func (r reversedIndex) Search(ctx context.Context, q []float32, k int) ([]driven.VectorHit, error) {
	hits, err := r.Index.Search(ctx, q, k)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(hits)-1; i < j; i, j = i+1, j-1 {
		hits[i], hits[j] = hits[j], hits[i]
	}
	return hits, nil
}

// pipeline bundles real in-memory adapters with the test embedder.
type pipeline struct {
	pages    *memory.PageStore
	index    *vectormemory.Index
	embedder *bowEmbedder
	chunker  *chunker.Splitter
	ingest   *IngestService
}

func newPipeline(opts ...IngestOption) *pipeline {
	p := &pipeline{
		pages:    memory.NewPageStore(),
		index:    vectormemory.New(0),
		embedder: newBowEmbedder(),
		chunker:  chunker.New(chunker.WithMaxChars(60)),
	}
	p.ingest = NewIngestService(p.pages, p.index, p.embedder, p.chunker, opts...)
	return p
}

func (p *pipeline) query(reranker driven.Reranker, summarizer driven.Summarizer, opts ...QueryOption) *QueryService {
	return NewQueryService(p.pages, p.index, p.embedder, reranker, summarizer, opts...)
}

// indexedIDs returns every chunk id currently in the index.
func (p *pipeline) indexedIDs(ctx context.Context) map[string]bool {
	hits, _ := p.index.Search(ctx, make([]float32, testDims), p.index.Len()+1)
	ids := make(map[string]bool, len(hits))
	for _, h := range hits {
		ids[h.ChunkID] = true
	}
	return ids
}

func save(url, title, content string) domain.SaveRequest {
	return domain.SaveRequest{URL: url, Title: title, Content: content}
}
