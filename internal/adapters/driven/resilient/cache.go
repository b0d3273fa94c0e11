package resilient

import (
	"context"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
	"github.com/custodia-labs/hask/internal/logger"
	"github.com/custodia-labs/hask/internal/metrics"
)

// Ensure CachedEmbedder implements the interface.
var _ driven.EmbeddingService = (*CachedEmbedder)(nil)

// Cache lookup results.
const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheError = "error"
)

// CachedEmbedder serves embeddings from a cache and fills it on miss.
// Cache failures are logged and bypassed.
type CachedEmbedder struct {
	next  driven.EmbeddingService
	cache driven.EmbeddingCache
}

// NewCachedEmbedder wraps next with cache.
func NewCachedEmbedder(next driven.EmbeddingService, cache driven.EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache}
}

// CacheKey derives the cache key for text under model.
func CacheKey(model, text string) string {
	return model + ":" + domain.HashContent(text)
}

// Embed returns the cached vector or embeds text.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.next.ModelName(), text)
	if vec, ok := c.lookup(ctx, key); ok {
		return vec, nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, vec)
	return vec, nil
}

// EmbedBatch embeds only the texts missing from the cache, in one call.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := c.next.ModelName()
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missing []int

	for i, text := range texts {
		keys[i] = CacheKey(model, text)
		if vec, ok := c.lookup(ctx, keys[i]); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	vecs, err := c.next.EmbedBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(batch) {
		return nil, domain.Malformed(model, "got %d vectors for %d texts", len(vecs), len(batch))
	}
	for j, i := range missing {
		out[i] = vecs[j]
		c.store(ctx, keys[i], vecs[j])
	}
	return out, nil
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	vec, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(cacheError).Inc()
		logger.Warn("Embedding cache get: %v", err)
		return nil, false
	case !ok || len(vec) == 0:
		metrics.CacheLookups.WithLabelValues(cacheMiss).Inc()
		return nil, false
	default:
		metrics.CacheLookups.WithLabelValues(cacheHit).Inc()
		return vec, true
	}
}

func (c *CachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.cache.Put(ctx, key, vec); err != nil {
		logger.Warn("Embedding cache put: %v", err)
	}
}

// Dimensions returns the wrapped service's vector size.
func (c *CachedEmbedder) Dimensions() int { return c.next.Dimensions() }

// ModelName returns the wrapped service's model.
func (c *CachedEmbedder) ModelName() string { return c.next.ModelName() }

// Ping checks the wrapped service.
func (c *CachedEmbedder) Ping(ctx context.Context) error { return c.next.Ping(ctx) }

// Close releases the wrapped service and the cache.
func (c *CachedEmbedder) Close() error {
	err := c.next.Close()
	if cerr := c.cache.Close(); err == nil {
		err = cerr
	}
	return err
}
