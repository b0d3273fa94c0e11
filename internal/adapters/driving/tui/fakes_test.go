package tui

import (
	"context"
	"strings"

	"github.com/custodia-labs/hask/internal/core/domain"
)

type fakeQuery struct {
	results []domain.QueryResult
	err     error
	queries []string
}

func (f *fakeQuery) Query(_ context.Context, text string, _ domain.QueryOptions) ([]domain.QueryResult, error) {
	f.queries = append(f.queries, text)
	return f.results, f.err
}

type fakePages struct {
	pages []domain.Page
}

func (f *fakePages) List(context.Context) ([]domain.Page, error) {
	return f.pages, nil
}

func (f *fakePages) Get(_ context.Context, url string) (*domain.Page, error) {
	for i := range f.pages {
		if f.pages[i].URL == url {
			return &f.pages[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeIngest struct {
	deleted []string
	pages   *fakePages
}

func (f *fakeIngest) Save(context.Context, domain.SaveRequest) (*domain.IngestReport, error) {
	return nil, nil
}

func (f *fakeIngest) SaveBatch(context.Context, []domain.SaveRequest) ([]*domain.IngestReport, []error) {
	return nil, nil
}

func (f *fakeIngest) Check(context.Context, string) (bool, error) { return false, nil }

func (f *fakeIngest) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	if f.pages != nil {
		var kept []domain.Page
		for _, p := range f.pages.pages {
			if !strings.EqualFold(p.URL, url) {
				kept = append(kept, p)
			}
		}
		f.pages.pages = kept
	}
	return nil
}
