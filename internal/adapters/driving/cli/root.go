// Package cli implements the hask command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hask/internal/core/ports/driving"
	"github.com/custodia-labs/hask/internal/logger"
)

// skipServices marks commands that run without the pipelines. The value
// "settings" still builds the settings service.
const (
	skipServices = "hask/skip-services"
	onlySettings = "settings"
)

var (
	version = "dev"
	verbose bool
	dataDir string
)

// Services wired into the commands.
var (
	ingestService   driving.IngestService
	queryService    driving.QueryService
	indexService    driving.IndexService
	pageService     driving.PageService
	settingsService driving.SettingsService
)

// Services holds the driving ports the commands run against.
type Services struct {
	Ingest   driving.IngestService
	Query    driving.QueryService
	Index    driving.IndexService
	Pages    driving.PageService
	Settings driving.SettingsService

	// Close releases stores and provider clients. May be nil.
	Close func()
}

// Options are the global flags a Builder needs.
type Options struct {
	// DataDir holds config, prompts and the page store. Empty means ~/.hask.
	DataDir string

	// SettingsOnly asks for the settings service alone; stores and
	// providers are left closed.
	SettingsOnly bool
}

// Builder creates the services once flags are parsed.
type Builder func(ctx context.Context, opts Options) (*Services, error)

var (
	servicesBuilder Builder
	servicesClose   func()
)

var rootCmd = &cobra.Command{
	Use:   "hask",
	Short: "Search the pages you have visited by meaning",
	Long: `Hask is a second brain for your browser history.

Save the text of pages you visit, then ask questions in plain language.
Pages are chunked, embedded and stored locally; results are reranked and
summarised by the configured providers.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline progress to stderr")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.hask)")
}

// SetServices wires services into the commands. Nil fields leave the
// corresponding commands unconfigured.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	ingestService = s.Ingest
	queryService = s.Query
	indexService = s.Index
	pageService = s.Pages
	settingsService = s.Settings
	servicesClose = s.Close
}

// Execute runs the root command. build is called after flag parsing for
// every command that needs the pipelines; it may be nil when services were
// set with SetServices.
func Execute(ctx context.Context, v string, build Builder) error {
	if v != "" {
		version = v
	}
	servicesBuilder = build
	defer func() {
		if servicesClose != nil {
			servicesClose()
			servicesClose = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if servicesBuilder == nil {
		return nil
	}
	skip := cmd.Annotations[skipServices]
	if skip != "" && skip != onlySettings {
		return nil
	}

	svcs, err := servicesBuilder(cmd.Context(), Options{
		DataDir:      dataDir,
		SettingsOnly: skip == onlySettings,
	})
	if err != nil {
		return err
	}
	SetServices(svcs)
	servicesBuilder = nil
	return nil
}
