// Package page provides the stored page text view for the TUI.
package page

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/hask/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driving"
)

// ErrNoPageService is returned when no page service is available.
var ErrNoPageService = errors.New("page service not available")

// View shows one page's stored text with scrolling.
type View struct {
	styles *styles.Styles
	pages  driving.PageService
	ctx    context.Context

	url          string
	back         messages.ViewType
	page         *domain.Page
	lines        []string
	scrollOffset int
	width        int
	height       int
	err          error
	loading      bool
}

// NewView creates a page view.
func NewView(s *styles.Styles, pages driving.PageService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		pages:  pages,
		ctx:    context.Background(),
		back:   messages.ViewPages,
		width:  80,
		height: 24,
	}
}

// WithContext sets the context service calls run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Open resets the view for url and returns a command that loads it.
// Esc returns to back.
func (v *View) Open(url string, back messages.ViewType) tea.Cmd {
	v.url = url
	v.back = back
	v.page = nil
	v.lines = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = true

	svc, ctx := v.pages, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.PageLoaded{URL: url, Err: ErrNoPageService}
		}
		p, err := svc.Get(ctx, url)
		return messages.PageLoaded{URL: url, Page: p, Err: err}
	}
}

// Update handles messages for the page view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		return v.handleKey(msg)

	case messages.PageLoaded:
		if msg.URL != v.url {
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.page = msg.Page
			v.wrap()
		}

	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "pgup", "ctrl+u":
		v.scrollOffset = max(v.scrollOffset-v.visibleLines(), 0)
	case "pgdown", "ctrl+d":
		v.scrollOffset = min(v.scrollOffset+v.visibleLines(), v.maxScrollOffset())
	case "home", "g":
		v.scrollOffset = 0
	case "end", "G":
		v.scrollOffset = v.maxScrollOffset()
	case "esc":
		back := v.back
		return v, func() tea.Msg {
			return messages.ViewChanged{View: back}
		}
	}
	return v, nil
}

// wrap splits the content into lines no wider than the view, breaking on
// spaces where possible.
func (v *View) wrap() {
	v.lines = nil
	if v.page == nil || v.page.Content == "" {
		return
	}
	width := max(v.width-4, 20)
	for _, raw := range strings.Split(v.page.Content, "\n") {
		v.lines = append(v.lines, wrapLine(raw, width)...)
	}
}

func wrapLine(line string, width int) []string {
	runes := []rune(line)
	if len(runes) <= width {
		return []string{line}
	}
	var out []string
	for len(runes) > width {
		cut := width
		for i := width; i > width/2; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimRight(string(runes[:cut]), " "))
		runes = []rune(strings.TrimLeft(string(runes[cut:]), " "))
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func (v *View) visibleLines() int {
	return max(v.height-7, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the page view.
func (v *View) View() string {
	var b strings.Builder

	title := v.url
	if v.page != nil && v.page.Title != "" {
		title = v.page.Title
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(v.styles.Link.Render(v.url))
	if v.page != nil {
		b.WriteString(v.styles.Muted.Render("  saved " + v.page.FetchedAt.Local().Format("2006-01-02 15:04")))
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(v.width-4, 60)))
	b.WriteString("\n\n")

	visible := v.visibleLines()
	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading page..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No content)"))
	default:
		for i := v.scrollOffset; i < len(v.lines) && i < v.scrollOffset+visible; i++ {
			b.WriteString(v.styles.Normal.Render(v.lines[i]))
			b.WriteString("\n")
		}
		if len(v.lines) > visible {
			pct := 0
			if m := v.maxScrollOffset(); m > 0 {
				pct = v.scrollOffset * 100 / m
			}
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("\n  [%d%%] Line %d-%d of %d",
				pct, v.scrollOffset+1, min(v.scrollOffset+visible, len(v.lines)), len(v.lines))))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back"))
	return b.String()
}

// SetDimensions sets the view dimensions and rewraps the text.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.wrap()
}

// Page returns the loaded page.
func (v *View) Page() *domain.Page {
	return v.page
}

// Lines returns the wrapped text.
func (v *View) Lines() []string {
	return v.lines
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// Back returns the view esc returns to.
func (v *View) Back() messages.ViewType {
	return v.back
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
