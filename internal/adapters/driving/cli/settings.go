package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/hask/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure storage, providers and query defaults.

Use subcommands to change a single key, check providers or run the
interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key, for example:

  hask settings set rerank.provider lexical
  hask settings set query.summaries 5

Run 'hask settings keys' to list every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Contact every enabled provider",
	Args:  cobra.NoArgs,
	RunE:  runSettingsCheck,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure every provider step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	RunE:  stageRunner(embeddingStage),
}

var settingsRerankCmd = &cobra.Command{
	Use:   "rerank",
	Short: "Configure rerank provider",
	RunE:  stageRunner(rerankStage),
}

var settingsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Configure summary provider",
	RunE:  stageRunner(summaryStage),
}

func init() {
	for _, c := range []*cobra.Command{
		settingsCmd, settingsShowCmd, settingsSetCmd, settingsKeysCmd,
		settingsCheckCmd, settingsWizardCmd, settingsEmbeddingCmd,
		settingsRerankCmd, settingsSummaryCmd,
	} {
		c.Annotations = map[string]string{skipServices: onlySettings}
	}

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsRerankCmd)
	settingsCmd.AddCommand(settingsSummaryCmd)
	rootCmd.AddCommand(settingsCmd)
}

// stage describes one configurable provider slot.
type stage struct {
	name     string
	prefix   string
	optional bool
	supports func(domain.AIProvider) bool
	models   map[domain.AIProvider]string
}

var (
	embeddingStage = stage{
		name:     "Embedding",
		prefix:   "embedding",
		supports: domain.SupportsEmbedding,
		models:   domain.DefaultEmbeddingModels(),
	}
	rerankStage = stage{
		name:     "Rerank",
		prefix:   "rerank",
		optional: true,
		supports: domain.SupportsRerank,
		models:   domain.DefaultRerankModels(),
	}
	summaryStage = stage{
		name:     "Summary",
		prefix:   "summary",
		optional: true,
		supports: domain.SupportsSummary,
		models:   domain.DefaultSummaryModels(),
	}
)

var allProviders = []domain.AIProvider{
	domain.AIProviderCohere,
	domain.AIProviderOllama,
	domain.AIProviderOpenAI,
	domain.AIProviderAnthropic,
	domain.AIProviderLexical,
}

func (s stage) providers() []domain.AIProvider {
	var out []domain.AIProvider
	for _, p := range allProviders {
		if s.supports(p) {
			out = append(out, p)
		}
	}
	if s.optional {
		out = append(out, domain.AIProviderNone)
	}
	return out
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Storage]")
	dir := settings.Storage.Dir
	if dir == "" {
		dir = "~/.hask"
	}
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	cmd.Printf("  Directory: %s\n", dir)
	cmd.Printf("  Vector index: %s\n", settings.Index.Backend)
	cmd.Println()

	cmd.Println("[Chunker]")
	cmd.Printf("  Max chars: %d\n", settings.Chunker.MaxChars)
	cmd.Printf("  Overlap sentences: %d\n", settings.Chunker.OverlapSentences)
	cmd.Println()

	printProvider(cmd, "Embedding", settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Printf("  Batch size: %d\n", settings.Embedding.BatchSize)
	cmd.Println()

	printProvider(cmd, "Rerank", settings.Rerank.Provider, settings.Rerank.Model,
		settings.Rerank.BaseURL, settings.Rerank.APIKey, settings.Rerank.IsConfigured())
	cmd.Println()

	printProvider(cmd, "Summary", settings.Summary.Provider, settings.Summary.Model,
		settings.Summary.BaseURL, settings.Summary.APIKey, settings.Summary.IsConfigured())
	cmd.Printf("  Max chars: %d\n", settings.Summary.MaxChars)
	cmd.Println()

	cmd.Println("[Query]")
	cmd.Printf("  Candidates: %d\n", settings.Query.Candidates)
	cmd.Printf("  Limit: %d\n", settings.Query.Limit)
	cmd.Printf("  Summaries: %d\n", settings.Query.Summaries)
	cmd.Println()

	cmd.Println("[Providers]")
	cmd.Printf("  Timeout: %s\n", settings.Provider.Timeout())
	cmd.Printf("  Max retries: %d\n", settings.Provider.MaxRetries)
	cmd.Printf("  Rate per second: %g\n", settings.Provider.RatePerSecond)
	cmd.Printf("  Ingest concurrency: %d\n", settings.Ingest.Concurrency)
	cmd.Println()

	cmd.Println("[Embedding Cache]")
	cmd.Printf("  Backend: %s\n", settings.Cache.Backend)
	if settings.Cache.Backend == domain.CacheRedis {
		cmd.Printf("  Redis: %s (db %d)\n", settings.Cache.RedisAddr, settings.Cache.RedisDB)
	}
	cmd.Printf("  TTL: %s\n", settings.Cache.TTL())
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'hask settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, name string, p domain.AIProvider, model, baseURL, apiKey string, ok bool) {
	cmd.Printf("[%s]\n", name)
	cmd.Printf("  Provider: %s\n", p.Description())
	if p == domain.AIProviderNone {
		return
	}
	if model != "" {
		cmd.Printf("  Model: %s\n", model)
	}
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if p.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !ok {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	shown := value
	if strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "password") {
		shown = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, shown)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	checks, err := settingsService.CheckProviders(cmd.Context())
	if err != nil {
		return fmt.Errorf("checking providers: %w", err)
	}

	failed := 0
	for _, c := range checks {
		if c.OK() {
			cmd.Printf("  %-10s %-10s OK\n", c.Stage, c.Provider)
			continue
		}
		failed++
		cmd.Printf("  %-10s %-10s FAILED: %v\n", c.Stage, c.Provider, c.Err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d providers failed", failed, len(checks))
	}
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("Hask Settings Wizard")
	cmd.Println("====================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	for i, st := range []stage{embeddingStage, rerankStage, summaryStage} {
		title := fmt.Sprintf("Step %d: %s Provider", i+1, st.name)
		cmd.Println(title)
		cmd.Println(strings.Repeat("-", len(title)))
		if err := configureStage(cmd, reader, st); err != nil {
			return err
		}
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func stageRunner(st stage) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if settingsService == nil {
			return errors.New("settings service not configured")
		}
		return configureStage(cmd, bufio.NewReader(cmd.InOrStdin()), st)
	}
}

func configureStage(cmd *cobra.Command, reader *bufio.Reader, st stage) error {
	providers := st.providers()
	cmd.Printf("Select %s Provider\n", st.name)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	if err := settingsService.Set(st.prefix+".provider", selected.String()); err != nil {
		return fmt.Errorf("failed to set %s provider: %w", st.prefix, err)
	}
	if selected == domain.AIProviderNone {
		cmd.Printf("%s disabled\n\n", st.name)
		return nil
	}

	if defaultModel, ok := st.models[selected]; ok {
		cmd.Printf("Enter model name [%s]: ", defaultModel)
		model := readLine(reader)
		if model == "" {
			model = defaultModel
		}
		if err := settingsService.Set(st.prefix+".model", model); err != nil {
			return fmt.Errorf("failed to set %s model: %w", st.prefix, err)
		}
	}

	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (empty to use the environment): ")
		apiKey := readPassword(reader)
		cmd.Println()
		if apiKey != "" {
			if err := settingsService.Set(st.prefix+".api_key", apiKey); err != nil {
				return fmt.Errorf("failed to set %s API key: %w", st.prefix, err)
			}
		}
	}

	cmd.Printf("%s provider configured: %s\n\n", st.name, selected.Description())
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when stdin is a terminal, otherwise a
// plain line from reader.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
