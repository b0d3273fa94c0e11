package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// Ensure PageStore implements the interface.
var _ driven.PageStore = (*PageStore)(nil)

// PageStore is an in-memory implementation of driven.PageStore.
type PageStore struct {
	mu     sync.RWMutex
	pages  map[string]domain.Page
	chunks map[string][]domain.Chunk
	byID   map[string]domain.Chunk
	now    func() time.Time
}

// NewPageStore creates a new in-memory page store.
func NewPageStore() *PageStore {
	return &PageStore{
		pages:  make(map[string]domain.Page),
		chunks: make(map[string][]domain.Chunk),
		byID:   make(map[string]domain.Chunk),
		now:    time.Now,
	}
}

// Exists reports whether a page is stored for url.
func (s *PageStore) Exists(_ context.Context, url string) (bool, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pages[key]
	return ok, nil
}

// Upsert creates or updates the page for url.
func (s *PageStore) Upsert(_ context.Context, url, title, content string) (*domain.UpsertResult, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	hash := domain.HashContent(content)
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	page, exists := s.pages[key]
	changed := !exists || page.ContentHash != hash
	if !exists {
		page = domain.Page{URL: key, CreatedAt: now}
	}
	if title != "" || !exists {
		page.Title = title
	}
	page.Content = content
	page.ContentHash = hash
	page.FetchedAt = now
	s.pages[key] = page

	return &domain.UpsertResult{Page: &page, Created: !exists, ContentChanged: changed}, nil
}

// Get retrieves a page.
func (s *PageStore) Get(_ context.Context, url string) (*domain.Page, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &page, nil
}

// List returns all pages, most recently fetched first.
func (s *PageStore) List(_ context.Context) ([]domain.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages := make([]domain.Page, 0, len(s.pages))
	for _, p := range s.pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool {
		if !pages[i].FetchedAt.Equal(pages[j].FetchedAt) {
			return pages[i].FetchedAt.After(pages[j].FetchedAt)
		}
		return pages[i].URL < pages[j].URL
	})
	return pages, nil
}

// Delete removes a page and its chunks.
func (s *PageStore) Delete(_ context.Context, url string) error {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[key]; !ok {
		return domain.ErrNotFound
	}
	s.dropChunks(key)
	delete(s.pages, key)
	return nil
}

// ReplaceChunks atomically swaps the chunk set of a page.
func (s *PageStore) ReplaceChunks(_ context.Context, url string, chunks []domain.Chunk) error {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if c.PageURL != key {
			return fmt.Errorf("%w: chunk %s belongs to %s", domain.ErrInvalidInput, c.ID, c.PageURL)
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, c.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[key]; !ok {
		return domain.ErrNotFound
	}
	s.dropChunks(key)

	stored := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		stored[i] = copyChunk(c)
		s.byID[c.ID] = stored[i]
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Position < stored[j].Position })
	s.chunks[key] = stored
	return nil
}

// DeleteChunks removes all chunks of a page.
func (s *PageStore) DeleteChunks(_ context.Context, url string) error {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropChunks(key)
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *PageStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c = copyChunk(c)
	return &c, nil
}

// GetChunks retrieves all chunks for a page, ordered by position.
func (s *PageStore) GetChunks(_ context.Context, url string) ([]domain.Chunk, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chunk, 0, len(s.chunks[key]))
	for _, c := range s.chunks[key] {
		out = append(out, copyChunk(c))
	}
	return out, nil
}

// ListChunks returns every stored chunk, ordered by page then position.
func (s *PageStore) ListChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	urls := make([]string, 0, len(s.chunks))
	for u := range s.chunks {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	out := make([]domain.Chunk, 0, len(s.byID))
	for _, u := range urls {
		for _, c := range s.chunks[u] {
			out = append(out, copyChunk(c))
		}
	}
	return out, nil
}

// Close releases resources (no-op for memory store).
func (s *PageStore) Close() error {
	return nil
}

// dropChunks must be called with the write lock held.
func (s *PageStore) dropChunks(key string) {
	for _, c := range s.chunks[key] {
		delete(s.byID, c.ID)
	}
	delete(s.chunks, key)
}

func copyChunk(c domain.Chunk) domain.Chunk {
	c.Embedding = append([]float32(nil), c.Embedding...)
	return c
}
