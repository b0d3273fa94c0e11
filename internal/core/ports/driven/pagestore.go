package driven

import (
	"context"

	"github.com/custodia-labs/hask/internal/core/domain"
)

// PageStore persists pages keyed by normalised URL, and their chunks.
// Every method that takes a URL normalises it first.
// Storage failures wrap domain.ErrStorage; missing rows return domain.ErrNotFound.
type PageStore interface {
	// Exists reports whether a page is stored for url.
	Exists(ctx context.Context, url string) (bool, error)

	// Upsert creates or updates the page for url. Calling it twice with the
	// same arguments leaves the same stored state. An empty title keeps the
	// stored title.
	Upsert(ctx context.Context, url, title, content string) (*domain.UpsertResult, error)

	// Get retrieves a page.
	Get(ctx context.Context, url string) (*domain.Page, error)

	// List returns all pages, most recently fetched first.
	List(ctx context.Context) ([]domain.Page, error)

	// Delete removes a page and its chunks.
	Delete(ctx context.Context, url string) error

	// ReplaceChunks atomically swaps the chunk set of a page.
	ReplaceChunks(ctx context.Context, url string, chunks []domain.Chunk) error

	// DeleteChunks removes all chunks of a page.
	DeleteChunks(ctx context.Context, url string) error

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks retrieves all chunks for a page, ordered by position.
	GetChunks(ctx context.Context, url string) ([]domain.Chunk, error)

	// ListChunks returns every stored chunk, ordered by page then position.
	ListChunks(ctx context.Context) ([]domain.Chunk, error)

	// Close releases resources.
	Close() error
}
