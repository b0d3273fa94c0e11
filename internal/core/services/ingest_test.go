package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vectormemory "github.com/custodia-labs/hask/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/hask/internal/core/domain"
)

const (
	articleA = "Goroutines are cheap. Channels connect them. Select waits on several channels at once."
	articleB = "Sourdough needs a starter. Feed it daily with flour and water. Bake at a high heat."
)

func TestIngestService_Save_CreatesPage(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()

	report, err := p.ingest.Save(ctx, save("HTTPS://Example.com/go/?utm_source=x", "Go notes", articleA))
	require.NoError(t, err)

	assert.True(t, report.Created)
	assert.False(t, report.Skipped)
	assert.Equal(t, domain.StageIndexed, report.Stage)
	assert.Equal(t, "https://example.com/go", report.Page.URL)
	assert.Equal(t, "Go notes", report.Page.Title)

	chunks, err := p.pages.GetChunks(ctx, report.Page.URL)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, len(chunks), report.ChunksIndexed)
	assert.Equal(t, len(chunks), p.index.Len())
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.Len(t, c.Embedding, testDims)
	}
}

func TestIngestService_Save_Idempotent(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()

	first, err := p.ingest.Save(ctx, save("https://example.com/go", "Go", articleA))
	require.NoError(t, err)
	indexed := p.index.Len()
	calls := p.embedder.callCount()

	second, err := p.ingest.Save(ctx, save("https://example.com/go", "Go", articleA))
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.True(t, second.Skipped)
	assert.Equal(t, domain.StageIndexed, second.Stage)
	assert.Equal(t, indexed, p.index.Len(), "no duplicate chunks")
	assert.Equal(t, calls, p.embedder.callCount(), "unchanged content is not re-embedded")

	pages, err := p.pages.List(ctx)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	assert.Equal(t, first.Page.CreatedAt, second.Page.CreatedAt)
}

func TestIngestService_Save_UnchangedRestoresIndex(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()

	_, err := p.ingest.Save(ctx, save("https://example.com/go", "", articleA))
	require.NoError(t, err)
	indexed := p.index.Len()
	require.NoError(t, p.index.Reset(ctx))

	report, err := p.ingest.Save(ctx, save("https://example.com/go", "", articleA))
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, indexed, p.index.Len())
}

func TestIngestService_Save_ReingestReplacesChunks(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()

	_, err := p.ingest.Save(ctx, save("https://example.com/page", "Before", articleA))
	require.NoError(t, err)
	oldChunks, err := p.pages.GetChunks(ctx, "https://example.com/page")
	require.NoError(t, err)

	report, err := p.ingest.Save(ctx, save("https://example.com/page", "", articleB))
	require.NoError(t, err)

	assert.False(t, report.Created)
	assert.Equal(t, len(oldChunks), report.ChunksRemoved)
	assert.Equal(t, "Before", report.Page.Title, "empty title keeps the stored one")
	assert.Equal(t, articleB, report.Page.Content)

	newChunks, err := p.pages.GetChunks(ctx, "https://example.com/page")
	require.NoError(t, err)
	ids := p.indexedIDs(ctx)
	assert.Len(t, ids, len(newChunks))
	for _, c := range newChunks {
		assert.True(t, ids[c.ID])
		assert.NotContains(t, c.Content, "Goroutines")
	}
	for _, c := range oldChunks {
		assert.False(t, ids[c.ID], "stale chunk %s left in index", c.ID)
	}
}

func TestIngestService_Save_EmptyContent(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()

	report, err := p.ingest.Save(ctx, save("https://example.com/blank", "Blank", "  \n\n "))
	require.NoError(t, err)

	assert.Equal(t, domain.StageChunked, report.Stage)
	assert.Equal(t, 0, report.ChunksIndexed)
	assert.Equal(t, 0, p.embedder.callCount())
	exists, err := p.ingest.Check(ctx, "https://example.com/blank")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIngestService_Save_Failures(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		setup     func(p *pipeline)
		wantStage domain.IngestStage
		wantErr   error
	}{
		{
			name:      "invalid url",
			url:       "ftp://example.com/file",
			wantStage: domain.StageReceived,
			wantErr:   domain.ErrInvalidInput,
		},
		{
			name:      "provider failure",
			url:       "https://example.com/a",
			setup:     func(p *pipeline) { p.embedder.err = domain.NewProviderError("bow", 500, "down") },
			wantStage: domain.StageEmbedded,
			wantErr:   domain.ErrProviderFailed,
		},
		{
			name:      "vector count mismatch",
			url:       "https://example.com/a",
			setup:     func(p *pipeline) { p.embedder.dropLast = true },
			wantStage: domain.StageEmbedded,
			wantErr:   domain.ErrMalformedResponse,
		},
		{
			name:      "inconsistent dimensions",
			url:       "https://example.com/a",
			setup:     func(p *pipeline) { p.embedder.badDimsAt = 1 },
			wantStage: domain.StageEmbedded,
			wantErr:   domain.ErrMalformedResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p := newPipeline()
			if tt.setup != nil {
				tt.setup(p)
			}

			report, err := p.ingest.Save(ctx, save(tt.url, "", articleA))

			require.Error(t, err)
			assert.Nil(t, report)
			var ierr *domain.IngestError
			require.True(t, errors.As(err, &ierr))
			assert.Equal(t, tt.wantStage, ierr.Stage)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, 0, p.index.Len(), "index left unmodified")
			chunks, err := p.pages.ListChunks(ctx)
			require.NoError(t, err)
			assert.Empty(t, chunks, "no chunks without embeddings")
		})
	}
}

func TestIngestService_Save_MalformedKeepsPreviousIndex(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()

	_, err := p.ingest.Save(ctx, save("https://example.com/other", "", articleB))
	require.NoError(t, err)
	before := p.indexedIDs(ctx)

	p.embedder.dropLast = true
	_, err = p.ingest.Save(ctx, save("https://example.com/new", "", articleA))
	require.ErrorIs(t, err, domain.ErrMalformedResponse)

	assert.Equal(t, before, p.indexedIDs(ctx))
}

func TestIngestService_Save_FailedResaveKeepsPreviousRevision(t *testing.T) {
	tests := []struct {
		name    string
		breakFn func(p *pipeline)
		want    error
	}{
		{"vector count mismatch", func(p *pipeline) { p.embedder.dropLast = true }, domain.ErrMalformedResponse},
		{"provider timeout", func(p *pipeline) { p.embedder.err = domain.ErrProviderTimeout }, domain.ErrProviderTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p := newPipeline()
			url := "https://example.com/page"

			_, err := p.ingest.Save(ctx, save(url, "Before", articleA))
			require.NoError(t, err)
			chunksBefore, err := p.pages.GetChunks(ctx, url)
			require.NoError(t, err)
			idsBefore := p.indexedIDs(ctx)
			require.NotEmpty(t, idsBefore)

			tt.breakFn(p)
			_, err = p.ingest.Save(ctx, save(url, "After", articleB))
			require.ErrorIs(t, err, tt.want)

			assert.Equal(t, idsBefore, p.indexedIDs(ctx))
			chunksAfter, err := p.pages.GetChunks(ctx, url)
			require.NoError(t, err)
			assert.Equal(t, chunksBefore, chunksAfter)
			page, err := p.pages.Get(ctx, url)
			require.NoError(t, err)
			assert.Equal(t, articleA, page.Content)
			assert.Equal(t, "Before", page.Title)
		})
	}
}

func TestIngestService_Save_ResaveIndexFailureRestoresRevision(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()
	flaky := &flakyIndex{Index: vectormemory.New(0), failAfter: -1}
	svc := NewIngestService(p.pages, flaky, p.embedder, p.chunker)
	url := "https://example.com/page"

	_, err := svc.Save(ctx, save(url, "Before", articleA))
	require.NoError(t, err)
	chunksBefore, err := p.pages.GetChunks(ctx, url)
	require.NoError(t, err)
	idsBefore := flaky.ids(ctx)

	flaky.failNext(1)
	_, err = svc.Save(ctx, save(url, "After", articleB))
	require.ErrorIs(t, err, errIndexFull)

	assert.Equal(t, idsBefore, flaky.ids(ctx))
	chunksAfter, err := p.pages.GetChunks(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, chunksBefore, chunksAfter)
	page, err := p.pages.Get(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, articleA, page.Content)
}

func TestIngestService_Save_IndexFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()
	flaky := &flakyIndex{Index: vectormemory.New(0), failAfter: 1}
	svc := NewIngestService(p.pages, flaky, p.embedder, p.chunker)

	_, err := svc.Save(ctx, save("https://example.com/a", "", articleA))

	var ierr *domain.IngestError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, domain.StageIndexed, ierr.Stage)
	assert.ErrorIs(t, err, errIndexFull)
	assert.Equal(t, 0, flaky.Len())
	chunks, err := p.pages.GetChunks(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	exists, err := svc.Check(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.False(t, exists, "a page created by the failed run is removed")
}

func TestIngestService_Save_NoEmbedder(t *testing.T) {
	p := newPipeline()
	svc := NewIngestService(p.pages, p.index, nil, p.chunker)

	_, err := svc.Save(context.Background(), save("https://example.com/a", "", articleA))
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestIngestService_Save_Batching(t *testing.T) {
	p := newPipeline()
	svc := NewIngestService(p.pages, p.index, p.embedder, p.chunker, WithBatchSize(1))

	report, err := svc.Save(context.Background(), save("https://example.com/a", "", articleA))
	require.NoError(t, err)
	assert.Equal(t, report.ChunksIndexed, p.embedder.callCount())
	assert.Greater(t, report.ChunksIndexed, 1)
}

func TestIngestService_Save_ConcurrentSameURL(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()
	url := "https://example.com/hot"

	const writers = 20
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content := articleA
			if i%2 == 1 {
				content = articleB
			}
			_, errs[i] = p.ingest.Save(ctx, save(url, fmt.Sprintf("v%d", i), content))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	pages, err := p.pages.List(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	chunks, err := p.pages.GetChunks(ctx, url)
	require.NoError(t, err)
	want := p.chunker.Split(pages[0].Content)
	require.Len(t, chunks, len(want))
	for i, c := range chunks {
		assert.Equal(t, want[i], c.Content, "chunks match the stored revision")
	}

	ids := p.indexedIDs(ctx)
	assert.Len(t, ids, len(chunks))
	for _, c := range chunks {
		assert.True(t, ids[c.ID])
	}
	assert.Equal(t, 0, p.ingest.locks.Len())
}

func TestIngestService_SaveBatch(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(WithConcurrency(2))

	reqs := []domain.SaveRequest{
		save("https://example.com/a", "A", articleA),
		save("not a url://", "", articleA),
		save("https://example.com/b", "B", articleB),
	}
	reports, errs := p.ingest.SaveBatch(ctx, reqs)

	require.Len(t, reports, 3)
	require.Len(t, errs, 3)
	assert.NoError(t, errs[0])
	assert.Error(t, errs[1])
	assert.Nil(t, reports[1])
	assert.NoError(t, errs[2])
	assert.Equal(t, "https://example.com/b", reports[2].Page.URL)
}

func TestIngestService_Check(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()

	exists, err := p.ingest.Check(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = p.ingest.Save(ctx, save("https://example.com/a", "", articleA))
	require.NoError(t, err)

	exists, err = p.ingest.Check(ctx, "example.com/a/#section")
	require.NoError(t, err)
	assert.True(t, exists, "check uses the normalised form")

	_, err = p.ingest.Check(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestService_Delete(t *testing.T) {
	ctx := context.Background()
	p := newPipeline()

	_, err := p.ingest.Save(ctx, save("https://example.com/a", "", articleA))
	require.NoError(t, err)
	_, err = p.ingest.Save(ctx, save("https://example.com/b", "", articleB))
	require.NoError(t, err)
	bChunks, err := p.pages.GetChunks(ctx, "https://example.com/b")
	require.NoError(t, err)

	require.NoError(t, p.ingest.Delete(ctx, "https://example.com/a"))

	exists, err := p.ingest.Check(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, len(bChunks), p.index.Len())

	err = p.ingest.Delete(ctx, "https://example.com/a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunkID_Deterministic(t *testing.T) {
	a := chunkID("https://example.com/", 0, "text")
	assert.Equal(t, a, chunkID("https://example.com/", 0, "text"))
	assert.NotEqual(t, a, chunkID("https://example.com/", 1, "text"))
	assert.NotEqual(t, a, chunkID("https://example.com/", 0, "other"))
	assert.NotEqual(t, a, chunkID("https://example.org/", 0, "text"))
}
