// Package settings provides the provider settings view for the TUI.
package settings

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

// ErrNoSettingsService is returned when no settings service is available.
var ErrNoSettingsService = errors.New("settings service not available")

// Section tracks which part of the view is active.
type Section int

const (
	SectionOverview Section = iota
	SectionProvider
)

// Stage is one provider slot that can be switched from the view.
type Stage struct {
	Name     string
	Prefix   string
	Optional bool
	Supports func(domain.AIProvider) bool
	Models   map[domain.AIProvider]string
}

// Stages lists the configurable provider slots in display order.
func Stages() []Stage {
	return []Stage{
		{Name: "Embedding", Prefix: "embedding", Supports: domain.SupportsEmbedding, Models: domain.DefaultEmbeddingModels()},
		{Name: "Rerank", Prefix: "rerank", Optional: true, Supports: domain.SupportsRerank, Models: domain.DefaultRerankModels()},
		{Name: "Summary", Prefix: "summary", Optional: true, Supports: domain.SupportsSummary, Models: domain.DefaultSummaryModels()},
	}
}

// Providers returns the providers a stage accepts, with none last for
// optional stages.
func (s Stage) Providers() []domain.AIProvider {
	all := []domain.AIProvider{
		domain.AIProviderCohere, domain.AIProviderOllama, domain.AIProviderOpenAI,
		domain.AIProviderAnthropic, domain.AIProviderLexical,
	}
	out := make([]domain.AIProvider, 0, len(all)+1)
	for _, p := range all {
		if s.Supports(p) {
			out = append(out, p)
		}
	}
	if s.Optional {
		out = append(out, domain.AIProviderNone)
	}
	return out
}

// View shows the current providers, lets the user switch them and runs a
// provider check.
type View struct {
	styles  *styles.Styles
	service driving.SettingsService
	ctx     context.Context
	stages  []Stage

	settings *domain.AppSettings
	checks   []domain.ProviderCheck
	checking bool
	err      error

	section  Section
	stage    int
	selected int
	width    int
	height   int
}

// NewView creates a settings view.
func NewView(s *styles.Styles, service driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:  s,
		service: service,
		ctx:     context.Background(),
		stages:  Stages(),
		width:   80,
		height:  24,
	}
}

// WithContext sets the context provider checks run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the settings.
func (v *View) Init() tea.Cmd {
	return v.Load()
}

// Load returns a command that reads the current settings.
func (v *View) Load() tea.Cmd {
	svc := v.service
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsLoaded{Err: ErrNoSettingsService}
		}
		s, err := svc.Get()
		return messages.SettingsLoaded{Settings: s, Err: err}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case messages.SettingsLoaded:
		v.err = msg.Err
		if msg.Err == nil {
			v.settings = msg.Settings
		}

	case messages.SettingsSaved:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.checks = nil
		return v, v.Load()

	case messages.ProvidersChecked:
		v.checking = false
		v.err = msg.Err
		v.checks = msg.Checks

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.String() == "esc" {
		if v.section == SectionProvider {
			v.section = SectionOverview
			v.selected = v.stage
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	limit := len(v.stages)
	if v.section == SectionProvider {
		limit = len(v.stages[v.stage].Providers())
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < limit-1 {
			v.selected++
		}
	case "c":
		if v.section == SectionOverview && !v.checking {
			return v, v.check()
		}
	case "enter":
		if v.section == SectionOverview {
			v.stage = v.selected
			v.section = SectionProvider
			v.selected = v.currentProviderIndex()
			return v, nil
		}
		st := v.stages[v.stage]
		provider := st.Providers()[v.selected]
		v.section = SectionOverview
		v.selected = v.stage
		return v, v.apply(st, provider)
	}
	return v, nil
}

func (v *View) currentProviderIndex() int {
	current := v.providerOf(v.stages[v.stage])
	for i, p := range v.stages[v.stage].Providers() {
		if p == current {
			return i
		}
	}
	return 0
}

func (v *View) providerOf(st Stage) domain.AIProvider {
	if v.settings == nil {
		return ""
	}
	switch st.Prefix {
	case "embedding":
		return v.settings.Embedding.Provider
	case "rerank":
		return v.settings.Rerank.Provider
	default:
		return v.settings.Summary.Provider
	}
}

func (v *View) modelOf(st Stage) string {
	if v.settings == nil {
		return ""
	}
	switch st.Prefix {
	case "embedding":
		return v.settings.Embedding.Model
	case "rerank":
		return v.settings.Rerank.Model
	default:
		return v.settings.Summary.Model
	}
}

// apply switches a stage to provider with its default model.
func (v *View) apply(st Stage, provider domain.AIProvider) tea.Cmd {
	svc := v.service
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		if err := svc.Set(st.Prefix+".provider", provider.String()); err != nil {
			return messages.SettingsSaved{Err: err}
		}
		if model, ok := st.Models[provider]; ok {
			if err := svc.Set(st.Prefix+".model", model); err != nil {
				return messages.SettingsSaved{Err: err}
			}
		}
		return messages.SettingsSaved{}
	}
}

func (v *View) check() tea.Cmd {
	v.checking = true
	svc, ctx := v.service, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.ProvidersChecked{Err: ErrNoSettingsService}
		}
		checks, err := svc.CheckProviders(ctx)
		return messages.ProvidersChecked{Checks: checks, Err: err}
	}
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if v.settings == nil {
		if v.err != nil {
			b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		} else {
			b.WriteString(v.styles.Muted.Render("Loading settings..."))
		}
		b.WriteString("\n\n")
		b.WriteString(v.styles.Help.Render("[esc] back"))
		return b.String()
	}

	if v.section == SectionProvider {
		b.WriteString(v.renderProviders())
		return b.String()
	}

	for i, st := range v.stages {
		provider := v.providerOf(st)
		line := fmt.Sprintf("%-10s %-10s %s", st.Name, provider, v.modelOf(st))
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + line))
		}
		b.WriteString("\n")
	}

	q := v.settings.Query
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("Storage: %s  Index: %s  Cache: %s",
		v.settings.Storage.Backend, v.settings.Index.Backend, v.settings.Cache.Backend)))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("Query: %d candidates, %d results, %d summaries",
		q.Candidates, q.Limit, q.Summaries)))
	b.WriteString("\n")

	if v.checking {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render("Checking providers..."))
		b.WriteString("\n")
	}
	for _, c := range v.checks {
		if c.OK() {
			b.WriteString(v.styles.Success.Render(fmt.Sprintf("  %-10s %-10s OK", c.Stage, c.Provider)))
		} else {
			b.WriteString(v.styles.Error.Render(fmt.Sprintf("  %-10s %-10s FAILED: %v", c.Stage, c.Provider, c.Err)))
		}
		b.WriteString("\n")
	}
	if v.err != nil {
		b.WriteString("\n")
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] change provider  [c] check providers  [esc] back"))
	return b.String()
}

func (v *View) renderProviders() string {
	var b strings.Builder
	st := v.stages[v.stage]
	b.WriteString(v.styles.Subtitle.Render(st.Name + " provider"))
	b.WriteString("\n\n")
	current := v.providerOf(st)
	for i, p := range st.Providers() {
		label := p.Description()
		if p == current {
			label += " (current)"
		}
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render("> " + label))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + label))
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

// Settings returns the loaded settings.
func (v *View) Settings() *domain.AppSettings {
	return v.settings
}

// Section returns the active section.
func (v *View) Section() Section {
	return v.section
}

// Selected returns the highlighted row.
func (v *View) Selected() int {
	return v.selected
}

// Checks returns the last provider check results.
func (v *View) Checks() []domain.ProviderCheck {
	return v.checks
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
