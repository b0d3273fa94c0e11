package page

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hask/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/hask/internal/core/domain"
)

type stubPages struct {
	page *domain.Page
}

func (s *stubPages) List(context.Context) ([]domain.Page, error) { return nil, nil }

func (s *stubPages) Get(_ context.Context, url string) (*domain.Page, error) {
	if s.page == nil || s.page.URL != url {
		return nil, domain.ErrNotFound
	}
	return s.page, nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func longPage() *domain.Page {
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	return &domain.Page{
		URL:       "https://example.com/long",
		Title:     "Long Read",
		Content:   strings.Join(lines, "\n"),
		FetchedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
	}
}

func open(t *testing.T, v *View, url string, back messages.ViewType) {
	t.Helper()
	cmd := v.Open(url, back)
	require.NotNil(t, cmd)
	v.Update(cmd())
}

func TestView_Open(t *testing.T) {
	v := NewView(nil, &stubPages{page: longPage()})
	v.SetDimensions(80, 24)

	open(t, v, "https://example.com/long", messages.ViewSearch)

	require.NotNil(t, v.Page())
	assert.Len(t, v.Lines(), 40)
	view := v.View()
	assert.Contains(t, view, "Long Read")
	assert.Contains(t, view, "line 0")
	assert.NotContains(t, view, "line 39")
	assert.Contains(t, view, "of 40")
}

func TestView_Scrolling(t *testing.T) {
	v := NewView(nil, &stubPages{page: longPage()})
	v.SetDimensions(80, 24)
	open(t, v, "https://example.com/long", messages.ViewPages)

	maxOffset := 40 - v.visibleLines()
	v.Update(runes("k"))
	assert.Equal(t, 0, v.ScrollOffset())
	v.Update(runes("j"))
	assert.Equal(t, 1, v.ScrollOffset())
	v.Update(runes("G"))
	assert.Equal(t, maxOffset, v.ScrollOffset())
	v.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, maxOffset, v.ScrollOffset())
	v.Update(runes("g"))
	assert.Equal(t, 0, v.ScrollOffset())
	v.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 0, v.ScrollOffset())
}

func TestView_EscReturnsToOrigin(t *testing.T) {
	v := NewView(nil, &stubPages{page: longPage()})
	open(t, v, "https://example.com/long", messages.ViewSearch)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewSearch}, cmd())
}

func TestView_Errors(t *testing.T) {
	v := NewView(nil, &stubPages{})
	open(t, v, "https://example.com/gone", messages.ViewPages)
	assert.ErrorIs(t, v.Err(), domain.ErrNotFound)
	assert.Contains(t, v.View(), "Error:")

	none := NewView(nil, nil)
	open(t, none, "https://example.com/x", messages.ViewPages)
	assert.ErrorIs(t, none.Err(), ErrNoPageService)
}

func TestView_IgnoresOtherPage(t *testing.T) {
	v := NewView(nil, &stubPages{page: longPage()})
	v.Open("https://example.com/long", messages.ViewPages)

	v.Update(messages.PageLoaded{URL: "https://example.com/other", Page: &domain.Page{Title: "Other"}})

	assert.Nil(t, v.Page())
	assert.Contains(t, v.View(), "Loading page...")
}

func TestView_EmptyContent(t *testing.T) {
	v := NewView(nil, &stubPages{page: &domain.Page{URL: "https://example.com/e"}})
	open(t, v, "https://example.com/e", messages.ViewPages)

	assert.Contains(t, v.View(), "(No content)")
}

func TestWrapLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		width int
		want  []string
	}{
		{"fits", "short line", 20, []string{"short line"}},
		{"breaks on space", "aaaa bbbb cccc", 10, []string{"aaaa bbbb", "cccc"}},
		{"hard break", "abcdefghijklmnopqrstuvwxy", 10, []string{"abcdefghij", "klmnopqrst", "uvwxy"}},
		{"multibyte", "ééééé ééééé", 6, []string{"ééééé", "ééééé"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wrapLine(tt.line, tt.width))
		})
	}
}
