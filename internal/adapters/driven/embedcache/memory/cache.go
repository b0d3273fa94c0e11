// Package memory provides a bounded in-process embedding cache.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// DefaultMaxEntries bounds the cache when no size is given.
const DefaultMaxEntries = 10000

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

type entry struct {
	vec       []float32
	expiresAt time.Time
}

// Cache is a least-recently-used embedding cache with optional expiry.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache
	ttl time.Duration
	now func() time.Time
}

// New creates a cache holding at most maxEntries vectors.
// A zero ttl keeps entries until they are evicted.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{lru: lru.New(maxEntries), ttl: ttl, now: time.Now}
}

// Get returns a copy of the cached vector.
func (c *Cache) Get(_ context.Context, key string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	e := v.(entry)
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return append([]float32(nil), e.vec...), true, nil
}

// Put stores a copy of vec.
func (c *Cache) Put(_ context.Context, key string, vec []float32) error {
	e := entry{vec: append([]float32(nil), vec...)}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, e)
	return nil
}

// Len returns the number of cached vectors, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Close drops every entry.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Clear()
	return nil
}
