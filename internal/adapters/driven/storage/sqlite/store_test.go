package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hask/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() { _ = store.Close() })
	return store
}

// createTestPage upserts a page to satisfy foreign key constraints.
func createTestPage(t *testing.T, store *Store, url string) {
	t.Helper()
	_, err := store.PageStore().Upsert(context.Background(), url, "Title", "content of "+url)
	require.NoError(t, err)
}

func testChunks(url string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:        url + "#" + string(rune('a'+i)),
			PageURL:   url,
			Position:  i,
			Content:   "chunk " + string(rune('a'+i)),
			Embedding: []float32{float32(i), 0.5, -1},
		}
	}
	return chunks
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_Success(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DBFile), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewStore_MigrationsRecorded(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
	require.NoError(t, store.Close())

	// Reopening must not re-run applied migrations.
	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()
	var count int
	require.NoError(t, reopened.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestNewStore_ForeignKeysEnabled(t *testing.T) {
	store := setupTestStore(t)

	var fk int
	require.NoError(t, store.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

// ==================== Page Tests ====================

func TestPageStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	ps := setupTestStore(t).PageStore()

	res, err := ps.Upsert(ctx, "HTTPS://Example.com:443/docs/?b=2&a=1#frag", "Docs", "hello")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.ContentChanged)
	assert.Equal(t, "https://example.com/docs?a=1&b=2", res.Page.URL)

	page, err := ps.Get(ctx, "https://example.com/docs?b=2&a=1")
	require.NoError(t, err)
	assert.Equal(t, "Docs", page.Title)
	assert.Equal(t, "hello", page.Content)
	assert.Equal(t, domain.HashContent("hello"), page.ContentHash)
}

func TestPageStore_UpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	ps := setupTestStore(t).PageStore()

	_, err := ps.Upsert(ctx, "https://example.com/a", "A", "same")
	require.NoError(t, err)
	res, err := ps.Upsert(ctx, "https://example.com/a", "A", "same")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.False(t, res.ContentChanged)

	pages, err := ps.List(ctx)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestPageStore_UpsertKeepsTitleAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	ps := store.PageStore()

	first, err := ps.Upsert(ctx, "https://example.com/a", "Original", "one")
	require.NoError(t, err)
	res, err := ps.Upsert(ctx, "https://example.com/a", "", "two")
	require.NoError(t, err)
	assert.True(t, res.ContentChanged)
	assert.Equal(t, "Original", res.Page.Title)

	page, err := ps.Get(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "Original", page.Title)
	assert.Equal(t, "two", page.Content)
	assert.True(t, page.CreatedAt.Equal(first.Page.CreatedAt))
}

func TestPageStore_GetNotFound(t *testing.T) {
	ps := setupTestStore(t).PageStore()
	_, err := ps.Get(context.Background(), "https://example.com/none")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageStore_InvalidURL(t *testing.T) {
	ps := setupTestStore(t).PageStore()
	_, err := ps.Upsert(context.Background(), "mailto:someone@example.com", "", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPageStore_Exists(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	ps := store.PageStore()

	exists, err := ps.Exists(ctx, "example.com/a")
	require.NoError(t, err)
	assert.False(t, exists)

	createTestPage(t, store, "https://example.com/a")
	exists, err = ps.Exists(ctx, "example.com/a/?utm_source=feed")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPageStore_ListOrderedByFetchedAt(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ps := store.PageStore()

	for _, u := range []string{"https://a.com/x", "https://b.com/x", "https://c.com/x"} {
		_, err := ps.Upsert(ctx, u, "", "x")
		require.NoError(t, err)
	}
	// Re-saving moves a page to the front.
	_, err := ps.Upsert(ctx, "https://a.com/x", "", "x")
	require.NoError(t, err)

	pages, err := ps.List(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "https://a.com/x", pages[0].URL)
	assert.Equal(t, "https://c.com/x", pages[1].URL)
	assert.Equal(t, "https://b.com/x", pages[2].URL)
}

// ==================== Chunk Tests ====================

func TestPageStore_ReplaceAndGetChunks(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	ps := store.PageStore()
	url := "https://example.com/a"
	createTestPage(t, store, url)

	require.NoError(t, ps.ReplaceChunks(ctx, url, testChunks(url, 3)))

	chunks, err := ps.GetChunks(ctx, url)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, []float32{float32(i), 0.5, -1}, c.Embedding)
	}

	c, err := ps.GetChunk(ctx, url+"#b")
	require.NoError(t, err)
	assert.Equal(t, "chunk b", c.Content)
	assert.Equal(t, url, c.PageURL)
}

func TestPageStore_ReplaceChunksSwapsSet(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	ps := store.PageStore()
	url := "https://example.com/a"
	createTestPage(t, store, url)

	require.NoError(t, ps.ReplaceChunks(ctx, url, testChunks(url, 3)))
	require.NoError(t, ps.ReplaceChunks(ctx, url, []domain.Chunk{
		{ID: "fresh", PageURL: url, Position: 0, Content: "new", Embedding: []float32{1}},
	}))

	chunks, err := ps.GetChunks(ctx, url)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "fresh", chunks[0].ID)

	_, err = ps.GetChunk(ctx, url+"#a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageStore_ReplaceChunksMissingPage(t *testing.T) {
	ps := setupTestStore(t).PageStore()
	url := "https://example.com/none"
	err := ps.ReplaceChunks(context.Background(), url, testChunks(url, 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageStore_ReplaceChunksRejectsEmptyEmbedding(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	url := "https://example.com/a"
	createTestPage(t, store, url)

	err := store.PageStore().ReplaceChunks(ctx, url, []domain.Chunk{{ID: "x", PageURL: url}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPageStore_DeleteCascadesChunks(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	ps := store.PageStore()
	url := "https://example.com/a"
	createTestPage(t, store, url)
	require.NoError(t, ps.ReplaceChunks(ctx, url, testChunks(url, 2)))

	require.NoError(t, ps.Delete(ctx, url))

	var n int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, ps.Delete(ctx, url), domain.ErrNotFound)
}

func TestPageStore_DeleteChunks(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	ps := store.PageStore()
	url := "https://example.com/a"
	createTestPage(t, store, url)
	require.NoError(t, ps.ReplaceChunks(ctx, url, testChunks(url, 2)))

	require.NoError(t, ps.DeleteChunks(ctx, url))

	chunks, err := ps.GetChunks(ctx, url)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	exists, err := ps.Exists(ctx, url)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPageStore_ListChunks(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	ps := store.PageStore()
	for _, u := range []string{"https://b.com/p", "https://a.com/p"} {
		createTestPage(t, store, u)
		require.NoError(t, ps.ReplaceChunks(ctx, u, testChunks(u, 2)))
	}

	chunks, err := ps.ListChunks(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.Equal(t, "https://a.com/p", chunks[0].PageURL)
	assert.Equal(t, 1, chunks[1].Position)
	assert.Equal(t, "https://b.com/p", chunks[3].PageURL)
}

func TestPageStore_ContextCancellation(t *testing.T) {
	ps := setupTestStore(t).PageStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ps.Upsert(ctx, "https://example.com/a", "", "x")
	assert.Error(t, err)
}

func TestPageStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	ps := setupTestStore(t).PageStore()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ps.Upsert(ctx, "https://example.com/p"+string(rune('a'+i)), "", "x")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	pages, err := ps.List(ctx)
	require.NoError(t, err)
	assert.Len(t, pages, 8)
}

// ==================== Helper Tests ====================

func TestFloat32Roundtrip(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
