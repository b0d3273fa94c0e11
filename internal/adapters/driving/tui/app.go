package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/hask/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/views/page"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/views/pages"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/views/settings"
	"github.com/custodia-labs/hask/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	menuView     *menu.View
	searchView   *search.View
	pagesView    *pages.View
	pageView     *page.View
	settingsView *settings.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error reported by any view.
	err error

	width  int
	height int
	ready  bool
}

var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		keymap:       km,
		menuView:     menu.NewView(s),
		searchView:   search.NewView(s, km, ports.Query),
		pagesView:    pages.NewView(s, ports.Pages, ports.Ingest),
		pageView:     page.NewView(s, ports.Pages),
		settingsView: settings.NewView(s, ports.Settings),
		currentView:  messages.ViewMenu,
	}, nil
}

// WithContext sets the context every service call runs under.
func (a *App) WithContext(ctx context.Context) *App {
	if ctx == nil {
		return a
	}
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.pagesView.WithContext(ctx)
	a.pageView.WithContext(ctx)
	a.settingsView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.SetWindowTitle("hask")
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc || msg.String() == "q" {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a.forward(msg)

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.PageSelected:
		a.currentView = messages.ViewPage
		return a, a.pageView.Open(msg.URL, msg.Back)

	case messages.SearchCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.PagesLoaded, messages.PageDeleted:
		a.pagesView, cmd = a.pagesView.Update(msg)
		a.err = a.pagesView.Err()
		return a, cmd

	case messages.PageLoaded:
		a.pageView, cmd = a.pageView.Update(msg)
		a.err = a.pageView.Err()
		return a, cmd

	case messages.SettingsLoaded, messages.SettingsSaved, messages.ProvidersChecked:
		a.settingsView, cmd = a.settingsView.Update(msg)
		a.err = a.settingsView.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a.forward(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a.forward(msg)
}

// forward hands msg to the active view.
func (a *App) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewPages:
		a.pagesView, cmd = a.pagesView.Update(msg)
	case messages.ViewPage:
		a.pageView, cmd = a.pageView.Update(msg)
	case messages.ViewSettings:
		a.settingsView, cmd = a.settingsView.Update(msg)
	case messages.ViewHelp:
	}
	return a, cmd
}

// switchTo activates view and returns the command that loads its data.
func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	prev := a.currentView
	a.currentView = view
	switch view {
	case messages.ViewSearch:
		// Coming back from a page keeps the results.
		if prev == messages.ViewPage {
			return nil
		}
		a.searchView.Reset()
		return a.searchView.Init()
	case messages.ViewPages:
		return a.pagesView.Load()
	case messages.ViewSettings:
		return a.settingsView.Init()
	case messages.ViewMenu, messages.ViewPage, messages.ViewHelp:
	}
	return nil
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewPages:
		return a.pagesView.View()
	case messages.ViewPage:
		return a.pageView.View()
	case messages.ViewSettings:
		return a.settingsView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-10s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Muted.Render("Save pages with 'hask save <url>' or through the MCP server."))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Help.Render("[esc] back to menu"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Results returns the results shown in the search view.
func (a *App) Results() []domain.QueryResult {
	return a.searchView.Results()
}

// Pages returns the pages shown in the pages view.
func (a *App) Pages() []domain.Page {
	return a.pagesView.Pages()
}

// OpenPage returns the page shown in the page view.
func (a *App) OpenPage() *domain.Page {
	return a.pageView.Page()
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
	a.pagesView.SetDimensions(width, height)
	a.pageView.SetDimensions(width, height)
	a.settingsView.SetDimensions(width, height)
}
