package driving

import (
	"context"

	"github.com/custodia-labs/hask/internal/core/domain"
)

// PageService exposes read access to stored pages.
type PageService interface {
	// List returns all pages, most recently fetched first.
	List(ctx context.Context) ([]domain.Page, error)

	// Get retrieves a page by URL.
	Get(ctx context.Context, url string) (*domain.Page, error)
}
