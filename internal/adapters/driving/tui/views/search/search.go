// Package search provides the question view for the TUI.
package search

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/hask/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/hask/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driving"
)

// Result actions.
const (
	ActionOpen   = "Open Page"
	ActionCancel = "Cancel"
)

// ActionMenu is a small overlay of actions on one result.
type ActionMenu struct {
	actions  []string
	selected int
	result   *domain.QueryResult
}

// View holds the query input, result cards and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.ResultList
	statusbar *status.Bar

	queryService driving.QueryService
	options      domain.QueryOptions
	ctx          context.Context

	width      int
	height     int
	ready      bool
	err        error
	pending    string
	focusInput bool
	actionMenu *ActionMenu
}

// NewView creates a new search view.
func NewView(s *styles.Styles, km *keymap.KeyMap, queryService driving.QueryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:       s,
		keymap:       km,
		input:        input.NewQueryInput(s),
		list:         list.NewResultList(s),
		statusbar:    status.NewBar(s, km),
		queryService: queryService,
		ctx:          context.Background(),
		width:        80,
		height:       24,
		focusInput:   true,
	}
}

// WithContext sets the context queries run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithOptions overrides the query options sent with every question.
func (v *View) WithOptions(opts domain.QueryOptions) *View {
	v.options = opts
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)

	case messages.SearchCompleted:
		v.handleCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.Fail(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.actionMenu != nil {
		return v.handleActionKey(msg)
	}

	if msg.Type == tea.KeyEsc {
		return v, changeView(messages.ViewMenu)
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			return v, v.submit()
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Up):
		v.list.MoveUp()
	case keymap.Matches(key, v.keymap.Down):
		v.list.MoveDown()
	case keymap.Matches(key, v.keymap.NewSearch):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	case msg.Type == tea.KeyEnter:
		if r := v.list.SelectedResult(); r != nil {
			v.actionMenu = &ActionMenu{actions: []string{ActionOpen, ActionCancel}, result: r}
		}
	}
	return v, nil
}

func (v *View) handleActionKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	m := v.actionMenu
	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.actions)-1 {
			m.selected++
		}
	case "esc":
		v.actionMenu = nil
	case "enter":
		v.actionMenu = nil
		if m.actions[m.selected] == ActionOpen {
			url := m.result.PageURL
			return v, func() tea.Msg {
				return messages.PageSelected{URL: url, Back: messages.ViewSearch}
			}
		}
	}
	return v, nil
}

// submit starts a query for the current input.
func (v *View) submit() tea.Cmd {
	query := strings.TrimSpace(v.input.Value())
	if query == "" {
		return nil
	}
	v.pending = query
	v.err = nil
	v.statusbar.SetState(status.StateQuerying)
	v.focusInput = false
	v.input.Blur()

	svc, ctx, opts := v.queryService, v.ctx, v.options
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoQueryService}
		}
		results, err := svc.Query(ctx, query, opts)
		return messages.SearchCompleted{Query: query, Results: results, Err: err}
	}
}

func (v *View) handleCompleted(msg messages.SearchCompleted) {
	// A newer question superseded this one.
	if msg.Query != v.pending {
		return
	}
	v.pending = ""
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.Fail(msg.Err)
		return
	}

	v.err = nil
	v.list.SetResults(msg.Results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetResultCount(len(msg.Results))
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.styles.Title.Render("hask"), "", v.input.View(), ""}
	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}
	if v.pending == "" && v.list.IsEmpty() && v.Query() != "" && !v.focusInput {
		sections = append(sections, v.styles.Muted.Render("Nothing in your history matches that yet."))
	} else {
		sections = append(sections, v.list.View())
	}
	if v.actionMenu != nil {
		sections = append(sections, "", v.renderActionMenu())
	}
	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderActionMenu() string {
	lines := make([]string, 0, len(v.actionMenu.actions))
	for i, action := range v.actionMenu.actions {
		if i == v.actionMenu.selected {
			lines = append(lines, v.styles.Selected.Render("> "+action))
		} else {
			lines = append(lines, v.styles.Normal.Render("  "+action))
		}
	}
	return v.styles.Border.Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func changeView(view messages.ViewType) tea.Cmd {
	return func() tea.Msg {
		return messages.ViewChanged{View: view}
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current input.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the input.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Results returns the current result cards.
func (v *View) Results() []domain.QueryResult {
	return v.list.Results()
}

// SelectedResult returns the highlighted card.
func (v *View) SelectedResult() *domain.QueryResult {
	return v.list.SelectedResult()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset returns the view to an empty input.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.err = nil
	v.pending = ""
	v.actionMenu = nil
	v.statusbar.Clear()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// ActionMenuOpen reports whether the result action overlay is shown.
func (v *View) ActionMenuOpen() bool {
	return v.actionMenu != nil
}
