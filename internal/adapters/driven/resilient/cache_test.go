package resilient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hask/internal/adapters/driven/embedcache/memory"
)

// countingEmbedder records every text it is asked to embed.
type countingEmbedder struct {
	mockEmbedder
	texts []string
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.texts = append(c.texts, text)
	return c.mockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.texts = append(c.texts, texts...)
	if err := c.mockEmbedder.next(ctx); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type brokenCache struct{ closed bool }

func (b *brokenCache) Get(context.Context, string) ([]float32, bool, error) {
	return nil, false, errors.New("cache down")
}
func (b *brokenCache) Put(context.Context, string, []float32) error { return errors.New("cache down") }
func (b *brokenCache) Close() error                                  { b.closed = true; return nil }

func TestCachedEmbedder_Embed(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, memory.New(10, 0))

	first, err := e.Embed(ctx, "hello")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"hello"}, inner.texts, "second call served from cache")
}

func TestCachedEmbedder_BatchEmbedsOnlyMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, memory.New(10, 0))

	_, err := e.EmbedBatch(ctx, []string{"a", "bb"})
	require.NoError(t, err)
	inner.texts = nil

	vecs, err := e.EmbedBatch(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []string{"ccc"}, inner.texts)
	assert.Equal(t, float32(2), vecs[0][0])
	assert.Equal(t, float32(3), vecs[1][0])
	assert.Equal(t, float32(1), vecs[2][0])
}

func TestCachedEmbedder_AllHitsSkipProvider(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, memory.New(10, 0))

	_, err := e.EmbedBatch(ctx, []string{"a"})
	require.NoError(t, err)
	_, err = e.EmbedBatch(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.callCount())
}

func TestCachedEmbedder_BypassesBrokenCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	cache := &brokenCache{}
	e := NewCachedEmbedder(inner, cache)

	vecs, err := e.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)

	vec, err := e.Embed(ctx, "c")
	require.NoError(t, err)
	assert.NotEmpty(t, vec)

	require.NoError(t, e.Close())
	assert.True(t, cache.closed)
	assert.True(t, inner.closed)
}

func TestCachedEmbedder_ProviderErrorNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{mockEmbedder: mockEmbedder{errs: []error{errors.New("boom")}}}
	cache := memory.New(10, 0)
	e := NewCachedEmbedder(inner, cache)

	_, err := e.EmbedBatch(ctx, []string{"a"})
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheKey(t *testing.T) {
	assert.NotEqual(t, CacheKey("m1", "text"), CacheKey("m2", "text"))
	assert.Equal(t, CacheKey("m1", "text"), CacheKey("m1", "text"))
}
