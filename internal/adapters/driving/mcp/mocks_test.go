package mcp

import (
	"context"

	"github.com/custodia-labs/hask/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	results []domain.QueryResult
	err     error
	lastQ   string
	lastOpt domain.QueryOptions
}

func (m *mockQueryService) Query(
	_ context.Context,
	text string,
	opts domain.QueryOptions,
) ([]domain.QueryResult, error) {
	m.lastQ = text
	m.lastOpt = opts
	return m.results, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	report  *domain.IngestReport
	exists  bool
	err     error
	checked string
	saved   domain.SaveRequest
}

func (m *mockIngestService) Save(_ context.Context, req domain.SaveRequest) (*domain.IngestReport, error) {
	m.saved = req
	return m.report, m.err
}

func (m *mockIngestService) SaveBatch(
	ctx context.Context,
	reqs []domain.SaveRequest,
) ([]*domain.IngestReport, []error) {
	reports := make([]*domain.IngestReport, len(reqs))
	errs := make([]error, len(reqs))
	for i := range reqs {
		reports[i], errs[i] = m.Save(ctx, reqs[i])
	}
	return reports, errs
}

func (m *mockIngestService) Check(_ context.Context, url string) (bool, error) {
	m.checked = url
	return m.exists, m.err
}

func (m *mockIngestService) Delete(_ context.Context, _ string) error {
	return m.err
}

// mockPageService is a mock implementation of driving.PageService.
type mockPageService struct {
	pages []domain.Page
	err   error
}

func (m *mockPageService) List(_ context.Context) ([]domain.Page, error) {
	return m.pages, m.err
}

func (m *mockPageService) Get(_ context.Context, url string) (*domain.Page, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.pages {
		if m.pages[i].URL == url {
			p := m.pages[i]
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}
