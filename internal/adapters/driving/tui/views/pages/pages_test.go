package pages

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hask/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driving"
)

type stubPages struct {
	pages []domain.Page
	err   error
}

func (s *stubPages) List(context.Context) ([]domain.Page, error) { return s.pages, s.err }

func (s *stubPages) Get(context.Context, string) (*domain.Page, error) {
	return nil, domain.ErrNotFound
}

type stubIngest struct {
	deleted []string
	err     error
}

func (s *stubIngest) Save(context.Context, domain.SaveRequest) (*domain.IngestReport, error) {
	return nil, nil
}

func (s *stubIngest) SaveBatch(context.Context, []domain.SaveRequest) ([]*domain.IngestReport, []error) {
	return nil, nil
}

func (s *stubIngest) Check(context.Context, string) (bool, error) { return false, nil }

func (s *stubIngest) Delete(_ context.Context, url string) error {
	s.deleted = append(s.deleted, url)
	return s.err
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func samplePages() []domain.Page {
	when := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	return []domain.Page{
		{URL: "https://example.com/one", Title: "One", FetchedAt: when},
		{URL: "https://example.com/two", FetchedAt: when},
	}
}

func loaded(t *testing.T, pages driving.PageService, ingest driving.IngestService) *View {
	t.Helper()
	v := NewView(nil, pages, ingest)
	v.SetDimensions(100, 30)
	cmd := v.Load()
	require.NotNil(t, cmd)
	v.Update(cmd())
	return v
}

func TestView_Load(t *testing.T) {
	v := loaded(t, &stubPages{pages: samplePages()}, nil)

	require.Len(t, v.Pages(), 2)
	view := v.View()
	assert.Contains(t, view, "Saved Pages (2)")
	assert.Contains(t, view, "One")
	assert.Contains(t, view, "(untitled)")
	assert.Contains(t, view, "https://example.com/two")
}

func TestView_LoadStates(t *testing.T) {
	empty := loaded(t, &stubPages{}, nil)
	assert.Contains(t, empty.View(), "No pages saved yet.")

	failing := loaded(t, &stubPages{err: errors.New("disk gone")}, nil)
	assert.Contains(t, failing.View(), "Error: disk gone")

	missing := NewView(nil, nil, nil)
	missing.Update(missing.Load()())
	assert.ErrorIs(t, missing.Err(), ErrNoPageService)
}

func TestView_Navigation(t *testing.T) {
	v := loaded(t, &stubPages{pages: samplePages()}, nil)

	v.Update(runes("k"))
	assert.Equal(t, 0, v.SelectedIndex())
	v.Update(runes("j"))
	v.Update(runes("j"))
	assert.Equal(t, 1, v.SelectedIndex())
	assert.Equal(t, "https://example.com/two", v.SelectedPage().URL)
}

func TestView_ShowContent(t *testing.T) {
	v := loaded(t, &stubPages{pages: samplePages()}, nil)

	v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, v.IsShowingMenu())
	assert.Contains(t, v.View(), "Actions for: https://example.com/one")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.PageSelected{URL: "https://example.com/one", Back: messages.ViewPages}, cmd())
}

func TestView_ForgetFromMenu(t *testing.T) {
	pages := &stubPages{pages: samplePages()}
	ingest := &stubIngest{}
	v := loaded(t, pages, ingest)

	v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v.Update(runes("j"))
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	pages.pages = pages.pages[1:]
	_, reload := v.Update(cmd())
	require.NotNil(t, reload)
	v.Update(reload())

	assert.Equal(t, []string{"https://example.com/one"}, ingest.deleted)
	assert.Len(t, v.Pages(), 1)
	assert.Contains(t, v.View(), "Forgot https://example.com/one")
}

func TestView_ForgetShortcut(t *testing.T) {
	ingest := &stubIngest{err: domain.ErrNotFound}
	v := loaded(t, &stubPages{pages: samplePages()}, ingest)

	_, cmd := v.Update(runes("d"))
	require.NotNil(t, cmd)
	_, reload := v.Update(cmd())

	assert.Nil(t, reload, "failed delete does not reload")
	assert.ErrorIs(t, v.Err(), domain.ErrNotFound)
}

func TestView_ForgetWithoutIngest(t *testing.T) {
	v := loaded(t, &stubPages{pages: samplePages()}, nil)

	_, cmd := v.Update(runes("d"))
	require.NotNil(t, cmd)
	v.Update(cmd())

	assert.ErrorIs(t, v.Err(), ErrNoIngestService)
}

func TestView_EscGoesToMenu(t *testing.T) {
	v := loaded(t, &stubPages{}, nil)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}
