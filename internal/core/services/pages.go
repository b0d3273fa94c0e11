package services

import (
	"context"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
	"github.com/custodia-labs/hask/internal/core/ports/driving"
)

// Ensure PageService implements the interface.
var _ driving.PageService = (*PageService)(nil)

// PageService provides read access to stored pages.
type PageService struct {
	pages driven.PageStore
}

// NewPageService creates a new page service.
func NewPageService(pages driven.PageStore) *PageService {
	return &PageService{pages: pages}
}

// List returns all pages, most recently fetched first.
func (s *PageService) List(ctx context.Context) ([]domain.Page, error) {
	return s.pages.List(ctx)
}

// Get retrieves a page by URL.
func (s *PageService) Get(ctx context.Context, url string) (*domain.Page, error) {
	key, err := domain.NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	return s.pages.Get(ctx, key)
}
