package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
	"github.com/custodia-labs/hask/internal/core/ports/driving"
	"github.com/custodia-labs/hask/internal/logger"
	"github.com/custodia-labs/hask/internal/metrics"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DefaultBatchSize is the default number of texts per embedding call.
const DefaultBatchSize = 32

// DefaultIngestConcurrency bounds SaveBatch.
const DefaultIngestConcurrency = 4

// chunkNamespace scopes deterministic chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hask/chunk"))

// IngestService runs the per-URL ingestion state machine:
// received -> deduped -> chunked -> embedded -> indexed.
type IngestService struct {
	pages       driven.PageStore
	index       driven.VectorIndex
	embedder    driven.EmbeddingService
	chunker     driven.Chunker
	locks       *KeyedMutex
	batchSize   int
	concurrency int
}

// IngestOption configures the ingest service.
type IngestOption func(*IngestService)

// WithBatchSize sets the maximum number of texts per embedding call.
func WithBatchSize(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithConcurrency bounds the number of concurrent saves in SaveBatch.
func WithConcurrency(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLocks shares a keyed mutex with other writers of the same store.
func WithLocks(km *KeyedMutex) IngestOption {
	return func(s *IngestService) {
		if km != nil {
			s.locks = km
		}
	}
}

// NewIngestService creates a new ingest service.
// The embedder may be nil; saves then fail with domain.ErrEmbeddingUnavailable.
func NewIngestService(
	pages driven.PageStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	chunker driven.Chunker,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		pages:       pages,
		index:       index,
		embedder:    embedder,
		chunker:     chunker,
		locks:       NewKeyedMutex(),
		batchSize:   DefaultBatchSize,
		concurrency: DefaultIngestConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save runs one page through the pipeline to a terminal state.
func (s *IngestService) Save(ctx context.Context, req domain.SaveRequest) (*domain.IngestReport, error) {
	logger.Section("Ingest", req.URL)
	logger.Debug("%d bytes of content", len(req.Content))

	key, err := domain.NormalizeURL(req.URL)
	if err != nil {
		return nil, s.fail(req.URL, domain.StageReceived, err)
	}
	if s.embedder == nil {
		return nil, s.fail(key, domain.StageReceived, domain.ErrEmbeddingUnavailable)
	}

	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return nil, s.fail(key, domain.StageReceived, err)
	}
	defer unlock()

	report, err := s.run(ctx, key, req)
	if err != nil {
		return nil, err
	}

	metrics.IngestRuns.WithLabelValues(report.Stage.String(), metrics.OutcomeOK).Inc()
	metrics.ChunksIndexed.Add(float64(report.ChunksIndexed))
	logger.Info("Saved %s: stage=%s created=%t indexed=%d removed=%d skipped=%t",
		key, report.Stage, report.Created, report.ChunksIndexed, report.ChunksRemoved, report.Skipped)
	return report, nil
}

// run executes the stages after the URL lock is held. Nothing is written
// until the new revision is embedded, so a failed run leaves the stored
// page, its chunks and their index entries as they were.
//
//nolint:gocognit,gocyclo // Pipeline orchestration with sequential stages
func (s *IngestService) run(ctx context.Context, key string, req domain.SaveRequest) (*domain.IngestReport, error) {
	// 1. DEDUPE
	existing, err := s.pages.Get(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, s.fail(key, domain.StageDeduped, err)
	}
	var prior []domain.Chunk
	if existing != nil {
		if prior, err = s.pages.GetChunks(ctx, key); err != nil {
			return nil, s.fail(key, domain.StageDeduped, err)
		}
	}
	changed := existing == nil || existing.ContentHash != domain.HashContent(req.Content)
	logger.Stage(domain.StageDeduped, key)
	logger.Debug("exists=%t content_changed=%t prior_chunks=%d", existing != nil, changed, len(prior))

	if !changed && len(prior) > 0 {
		res, err := s.pages.Upsert(ctx, key, req.Title, req.Content)
		if err != nil {
			return nil, s.fail(key, domain.StageDeduped, err)
		}
		// Same content: make sure the index still holds the stored chunks.
		for _, c := range prior {
			if err := s.index.Add(ctx, c.ID, c.Embedding); err != nil {
				return nil, s.fail(key, domain.StageIndexed, err)
			}
		}
		return &domain.IngestReport{Page: res.Page, Stage: domain.StageIndexed, Skipped: true}, nil
	}

	// 2. CHUNK
	spans := s.chunker.Split(req.Content)
	logger.Stage(domain.StageChunked, key)
	logger.Debug("Chunked into %d spans", len(spans))

	// 3. EMBED
	var chunks []domain.Chunk
	if len(spans) > 0 {
		vectors, err := s.embedAll(ctx, spans)
		if err != nil {
			return nil, s.fail(key, domain.StageEmbedded, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, s.fail(key, domain.StageEmbedded, err)
		}
		logger.Stage(domain.StageEmbedded, key)
		chunks = make([]domain.Chunk, len(spans))
		for i, span := range spans {
			chunks[i] = domain.Chunk{
				ID:        chunkID(key, i, span),
				PageURL:   key,
				Position:  i,
				Content:   span,
				Embedding: vectors[i],
			}
		}
	}

	// 4. COMMIT AND INDEX
	// The commit runs to completion even if the caller goes away, so the
	// store and the index never disagree about a half-saved page.
	commitCtx := context.WithoutCancel(ctx)
	res, err := s.pages.Upsert(commitCtx, key, req.Title, req.Content)
	if err != nil {
		return nil, s.fail(key, domain.StageDeduped, err)
	}
	report := &domain.IngestReport{Page: res.Page, Created: res.Created, Stage: domain.StageChunked}

	if len(chunks) > 0 {
		err = s.pages.ReplaceChunks(commitCtx, key, chunks)
	} else if len(prior) > 0 {
		err = s.pages.DeleteChunks(commitCtx, key)
	}
	if err != nil {
		s.restore(commitCtx, key, existing, prior, nil)
		return nil, s.fail(key, domain.StageIndexed, err)
	}

	// Stale entries leave the index before the new revision goes in.
	for _, c := range prior {
		if err := s.index.Delete(commitCtx, c.ID); err != nil {
			s.restore(commitCtx, key, existing, prior, nil)
			return nil, s.fail(key, domain.StageIndexed, err)
		}
	}
	report.ChunksRemoved = len(prior)
	if len(chunks) == 0 {
		return report, nil
	}

	report.Stage = domain.StageEmbedded
	for i, c := range chunks {
		if err := s.index.Add(commitCtx, c.ID, c.Embedding); err != nil {
			s.restore(commitCtx, key, existing, prior, chunks[:i])
			return nil, s.fail(key, domain.StageIndexed, err)
		}
	}

	logger.Stage(domain.StageIndexed, key)
	report.Stage = domain.StageIndexed
	report.ChunksIndexed = len(chunks)
	return report, nil
}

// embedAll embeds spans in batches and validates every response.
func (s *IngestService) embedAll(ctx context.Context, spans []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(spans))
	dims := 0
	for start := 0; start < len(spans); start += s.batchSize {
		end := min(start+s.batchSize, len(spans))
		batch := spans[start:end]

		logger.Debug("Embedding batch %d-%d", start, end)
		got, err := s.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(got) != len(batch) {
			return nil, domain.Malformed(s.embedder.ModelName(),
				"got %d vectors for %d texts", len(got), len(batch))
		}
		for i, v := range got {
			if len(v) == 0 {
				return nil, domain.Malformed(s.embedder.ModelName(), "empty vector at %d", start+i)
			}
			if dims == 0 {
				dims = len(v)
			}
			if len(v) != dims {
				return nil, domain.Malformed(s.embedder.ModelName(),
					"vector %d has %d dimensions, want %d", start+i, len(v), dims)
			}
		}
		vectors = append(vectors, got...)
	}
	return vectors, nil
}

// restore puts back the revision that was stored before a failed commit.
// A page created by the failed run is removed again.
func (s *IngestService) restore(
	ctx context.Context, key string, existing *domain.Page, prior, added []domain.Chunk,
) {
	logger.Warn("Rolling back %s: removing %d indexed chunks, restoring %d", key, len(added), len(prior))
	for _, c := range added {
		if err := s.index.Delete(ctx, c.ID); err != nil {
			logger.Warn("Rollback: delete vector %s: %v", c.ID, err)
		}
	}

	if existing == nil {
		if err := s.pages.Delete(ctx, key); err != nil {
			logger.Warn("Rollback: delete page %s: %v", key, err)
		}
		return
	}

	if _, err := s.pages.Upsert(ctx, key, existing.Title, existing.Content); err != nil {
		logger.Warn("Rollback: restore page %s: %v", key, err)
	}
	var err error
	if len(prior) > 0 {
		err = s.pages.ReplaceChunks(ctx, key, prior)
	} else {
		err = s.pages.DeleteChunks(ctx, key)
	}
	if err != nil {
		logger.Warn("Rollback: restore chunks for %s: %v", key, err)
	}
	for _, c := range prior {
		if err := s.index.Add(ctx, c.ID, c.Embedding); err != nil {
			logger.Warn("Rollback: re-index chunk %s: %v", c.ID, err)
		}
	}
}

func (s *IngestService) fail(url string, stage domain.IngestStage, err error) error {
	metrics.IngestRuns.WithLabelValues(stage.String(), metrics.OutcomeError).Inc()
	if errors.Is(err, domain.ErrMalformedResponse) {
		logger.Error("Ingest %s failed at %s: %v", url, stage, err)
	} else {
		logger.Warn("Ingest %s failed at %s: %v", url, stage, err)
	}
	return &domain.IngestError{URL: url, Stage: stage, Err: err}
}

// SaveBatch saves pages concurrently. Saves of the same URL still serialise.
func (s *IngestService) SaveBatch(
	ctx context.Context, reqs []domain.SaveRequest,
) ([]*domain.IngestReport, []error) {
	reports := make([]*domain.IngestReport, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range reqs {
		g.Go(func() error {
			reports[i], errs[i] = s.Save(ctx, reqs[i])
			return nil
		})
	}
	_ = g.Wait()

	return reports, errs
}

// Check reports whether a page exists for the normalised url.
func (s *IngestService) Check(ctx context.Context, url string) (bool, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return false, err
	}
	exists, err := s.pages.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	logger.Debug("Check %s: exists=%t", key, exists)
	return exists, nil
}

// Delete removes a page, its chunks and their index entries.
func (s *IngestService) Delete(ctx context.Context, url string) error {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return err
	}

	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	chunks, err := s.pages.GetChunks(ctx, key)
	if err != nil {
		return fmt.Errorf("get chunks: %w", err)
	}
	for _, c := range chunks {
		if err := s.index.Delete(ctx, c.ID); err != nil {
			return fmt.Errorf("delete vector %s: %w", c.ID, err)
		}
	}
	if err := s.pages.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	logger.Info("Deleted %s (%d chunks)", key, len(chunks))
	return nil
}

// chunkID derives a stable ID from the page key, position and text, so a
// re-save of identical content produces identical IDs.
func chunkID(pageURL string, position int, text string) string {
	name := fmt.Sprintf("%s#%d#%s", pageURL, position, domain.HashContent(text))
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
