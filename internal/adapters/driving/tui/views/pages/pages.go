// Package pages provides the saved pages list view for the TUI.
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/hask/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driving"
)

var (
	// ErrNoPageService is returned when listing without a page service.
	ErrNoPageService = errors.New("page service not available")

	// ErrNoIngestService is returned when forgetting without an ingest service.
	ErrNoIngestService = errors.New("ingest service not available")
)

// Action is an operation on the selected page.
type Action int

const (
	ActionShowContent Action = iota
	ActionForget
	ActionCancel
)

var actionLabels = map[Action]string{
	ActionShowContent: "Show Content",
	ActionForget:      "Forget Page",
	ActionCancel:      "Cancel",
}

// View lists saved pages.
type View struct {
	styles *styles.Styles
	pages  driving.PageService
	ingest driving.IngestService
	ctx    context.Context

	items        []domain.Page
	selected     int
	scrollOffset int
	width        int
	height       int
	err          error
	notice       string
	loading      bool
	showingMenu  bool
	menuSelected Action
}

// NewView creates a pages view. Either service may be nil.
func NewView(s *styles.Styles, pages driving.PageService, ingest driving.IngestService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		pages:  pages,
		ingest: ingest,
		ctx:    context.Background(),
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

// Load returns a command that lists pages.
func (v *View) Load() tea.Cmd {
	v.loading = true
	svc, ctx := v.pages, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.PagesLoaded{Err: ErrNoPageService}
		}
		pages, err := svc.List(ctx)
		return messages.PagesLoaded{Pages: pages, Err: err}
	}
}

// Update handles messages for the pages view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		if v.showingMenu {
			return v.handleMenuKey(msg)
		}
		return v.handleKey(msg)

	case messages.PagesLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.items = msg.Pages
			if v.selected >= len(v.items) {
				v.selected = max(len(v.items)-1, 0)
			}
			v.adjustScroll()
		}

	case messages.PageDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = "Forgot " + msg.URL
		return v, v.Load()

	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.items)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "enter":
		if len(v.items) > 0 {
			v.showingMenu = true
			v.menuSelected = ActionShowContent
		}
	case "d", "delete":
		if p := v.SelectedPage(); p != nil {
			return v, v.forget(p.URL)
		}
	case "r":
		v.notice = ""
		return v, v.Load()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	return v, nil
}

func (v *View) handleMenuKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.menuSelected > ActionShowContent {
			v.menuSelected--
		}
	case "down", "j":
		if v.menuSelected < ActionCancel {
			v.menuSelected++
		}
	case "esc":
		v.showingMenu = false
	case "enter":
		v.showingMenu = false
		p := v.SelectedPage()
		if p == nil {
			return v, nil
		}
		switch v.menuSelected {
		case ActionShowContent:
			url := p.URL
			return v, func() tea.Msg {
				return messages.PageSelected{URL: url, Back: messages.ViewPages}
			}
		case ActionForget:
			return v, v.forget(p.URL)
		case ActionCancel:
		}
	}
	return v, nil
}

func (v *View) forget(url string) tea.Cmd {
	svc, ctx := v.ingest, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.PageDeleted{URL: url, Err: ErrNoIngestService}
		}
		return messages.PageDeleted{URL: url, Err: svc.Delete(ctx, url)}
	}
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	return max(v.height-8, 1)
}

// View renders the pages view.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Saved Pages (%d)", len(v.items))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading pages..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.items) == 0:
		b.WriteString(v.styles.Muted.Render("No pages saved yet."))
	case v.showingMenu:
		return b.String() + v.renderActionMenu()
	default:
		visible := v.visibleItemCount()
		for i := v.scrollOffset; i < len(v.items) && i < v.scrollOffset+visible; i++ {
			b.WriteString(v.renderPage(i, &v.items[i]))
			b.WriteString("\n")
		}
		if len(v.items) > visible {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("\n  [%d-%d of %d]",
				v.scrollOffset+1, min(v.scrollOffset+visible, len(v.items)), len(v.items))))
		}
	}

	if v.notice != "" && v.err == nil {
		b.WriteString("\n\n")
		b.WriteString(v.styles.Success.Render(v.notice))
	}
	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] actions  [d] forget  [r] reload  [esc] back"))
	return b.String()
}

func (v *View) renderPage(index int, p *domain.Page) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}
	title := p.Title
	if title == "" {
		title = "(untitled)"
	}
	col := max(v.width/2-4, 10)
	title = list.Truncate(title, col)
	url := list.Truncate(p.URL, col)
	saved := p.FetchedAt.Local().Format("2006-01-02")

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s  %s", indicator, col, title, saved, url))
	}
	return v.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, col, title)) +
		v.styles.Muted.Render(saved+"  ") + v.styles.Link.Render(url)
}

func (v *View) renderActionMenu() string {
	var b strings.Builder
	if p := v.SelectedPage(); p != nil {
		b.WriteString(v.styles.Subtitle.Render("Actions for: " + p.URL))
		b.WriteString("\n\n")
	}
	for a := ActionShowContent; a <= ActionCancel; a++ {
		if a == v.menuSelected {
			b.WriteString(v.styles.Selected.Render("> " + actionLabels[a]))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + actionLabels[a]))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] select  [esc] cancel"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Pages returns the listed pages.
func (v *View) Pages() []domain.Page {
	return v.items
}

// SelectedIndex returns the highlighted row.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedPage returns the highlighted page, or nil when the list is empty.
func (v *View) SelectedPage() *domain.Page {
	if v.selected < len(v.items) {
		return &v.items[v.selected]
	}
	return nil
}

// IsShowingMenu reports whether the action menu is visible.
func (v *View) IsShowingMenu() bool {
	return v.showingMenu
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
