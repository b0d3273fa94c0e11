// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/hask/internal/core/domain"
)

// SearchRequested is a command to run a query.
type SearchRequested struct {
	Query   string
	Options domain.QueryOptions
}

// SearchCompleted carries query results back to the model.
type SearchCompleted struct {
	Query   string
	Results []domain.QueryResult
	Err     error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch is the query input and results view.
	ViewSearch
	// ViewPages lists saved pages.
	ViewPages
	// ViewPage shows the stored text of one page.
	ViewPage
	// ViewSettings shows settings and provider checks.
	ViewSettings
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewPages:
		return "pages"
	case ViewPage:
		return "page"
	case ViewSettings:
		return "settings"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// PagesLoaded carries the saved pages.
type PagesLoaded struct {
	Pages []domain.Page
	Err   error
}

// PageSelected asks for a page to be opened. Back is the view esc returns to.
type PageSelected struct {
	URL  string
	Back ViewType
}

// PageLoaded carries a full page.
type PageLoaded struct {
	URL  string
	Page *domain.Page
	Err  error
}

// PageDeleted signals a page was forgotten.
type PageDeleted struct {
	URL string
	Err error
}

// SettingsLoaded carries the application settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// ProvidersChecked carries the outcome of contacting every provider.
type ProvidersChecked struct {
	Checks []domain.ProviderCheck
	Err    error
}

// SettingsSaved signals a settings change was persisted.
type SettingsSaved struct {
	Err error
}
