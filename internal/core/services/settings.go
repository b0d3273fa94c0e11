package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
	"github.com/custodia-labs/hask/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyStorageBackend   = "storage.backend"
	keyStorageDir       = "storage.dir"
	keyIndexBackend     = "index.backend"
	keyChunkMaxChars    = "chunker.max_chars"
	keyChunkOverlap     = "chunker.overlap_sentences"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedBatchSize   = "embedding.batch_size"
	keyRerankProvider   = "rerank.provider"
	keyRerankModel      = "rerank.model"
	keyRerankBaseURL    = "rerank.base_url"
	keyRerankAPIKey     = "rerank.api_key"
	keySummaryProvider  = "summary.provider"
	keySummaryModel     = "summary.model"
	keySummaryBaseURL   = "summary.base_url"
	keySummaryAPIKey    = "summary.api_key"
	keySummaryMaxChars  = "summary.max_chars"
	keyQueryCandidates  = "query.candidates"
	keyQueryLimit       = "query.limit"
	keyQuerySummaries   = "query.summaries"
	keyProviderTimeout  = "provider.timeout_seconds"
	keyProviderRetries  = "provider.max_retries"
	keyProviderRate     = "provider.rate_per_second"
	keyIngestConcurrent = "ingest.concurrency"
	keyCacheBackend     = "cache.backend"
	keyCacheRedisAddr   = "cache.redis_addr"
	keyCacheRedisPass   = "cache.redis_password"
	keyCacheRedisDB     = "cache.redis_db"
	keyCacheTTLHours    = "cache.ttl_hours"
)

// Environment variables consulted when an API key is not configured.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderCohere:    "COHERE_API_KEY",
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindProvider
	kindStorage
	kindIndex
	kindCache
)

var settingKeys = map[string]keyKind{
	keyStorageBackend:   kindStorage,
	keyStorageDir:       kindString,
	keyIndexBackend:     kindIndex,
	keyChunkMaxChars:    kindInt,
	keyChunkOverlap:     kindInt,
	keyEmbedProvider:    kindProvider,
	keyEmbedModel:       kindString,
	keyEmbedBaseURL:     kindString,
	keyEmbedAPIKey:      kindString,
	keyEmbedBatchSize:   kindInt,
	keyRerankProvider:   kindProvider,
	keyRerankModel:      kindString,
	keyRerankBaseURL:    kindString,
	keyRerankAPIKey:     kindString,
	keySummaryProvider:  kindProvider,
	keySummaryModel:     kindString,
	keySummaryBaseURL:   kindString,
	keySummaryAPIKey:    kindString,
	keySummaryMaxChars:  kindInt,
	keyQueryCandidates:  kindInt,
	keyQueryLimit:       kindInt,
	keyQuerySummaries:   kindInt,
	keyProviderTimeout:  kindInt,
	keyProviderRetries:  kindInt,
	keyProviderRate:     kindFloat,
	keyIngestConcurrent: kindInt,
	keyCacheBackend:     kindCache,
	keyCacheRedisAddr:   kindString,
	keyCacheRedisPass:   kindString,
	keyCacheRedisDB:     kindInt,
	keyCacheTTLHours:    kindInt,
}

// SettingKeys returns every recognised config key, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.ProviderValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// validator may be nil, in which case CheckProviders is unavailable.
func NewSettingsService(configStore driven.ConfigStore, validator driven.ProviderValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validator:   validator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings. Empty API keys are filled
// from the provider's environment variable.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	embedProvider := s.getProvider(keyEmbedProvider, d.Embedding.Provider)
	rerankProvider := s.getProvider(keyRerankProvider, d.Rerank.Provider)
	summaryProvider := s.getProvider(keySummaryProvider, d.Summary.Provider)

	settings := &domain.AppSettings{
		Storage: domain.StorageSettings{
			Backend: s.getStorage(d.Storage.Backend),
			Dir:     s.configStore.GetString(keyStorageDir),
		},
		Index: domain.IndexSettings{
			Backend: s.getIndex(d.Index.Backend),
		},
		Chunker: domain.ChunkerSettings{
			MaxChars:         s.getInt(keyChunkMaxChars, d.Chunker.MaxChars),
			OverlapSentences: s.getInt(keyChunkOverlap, d.Chunker.OverlapSentences),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:  embedProvider,
			Model:     s.getString(keyEmbedModel, defaultModel(domain.DefaultEmbeddingModels(), embedProvider, d.Embedding.Model)),
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:    s.apiKey(keyEmbedAPIKey, embedProvider),
			BatchSize: s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
		},
		Rerank: domain.RerankSettings{
			Provider: rerankProvider,
			Model:    s.getString(keyRerankModel, defaultModel(domain.DefaultRerankModels(), rerankProvider, "")),
			BaseURL:  s.configStore.GetString(keyRerankBaseURL),
			APIKey:   s.apiKey(keyRerankAPIKey, rerankProvider),
		},
		Summary: domain.SummarySettings{
			Provider: summaryProvider,
			Model:    s.getString(keySummaryModel, defaultModel(domain.DefaultSummaryModels(), summaryProvider, "")),
			BaseURL:  s.configStore.GetString(keySummaryBaseURL),
			APIKey:   s.apiKey(keySummaryAPIKey, summaryProvider),
			MaxChars: s.getInt(keySummaryMaxChars, d.Summary.MaxChars),
		},
		Query: domain.QuerySettings{
			Candidates: s.getInt(keyQueryCandidates, d.Query.Candidates),
			Limit:      s.getInt(keyQueryLimit, d.Query.Limit),
			Summaries:  s.getInt(keyQuerySummaries, d.Query.Summaries),
		},
		Provider: domain.ProviderSettings{
			TimeoutSeconds: s.getInt(keyProviderTimeout, d.Provider.TimeoutSeconds),
			MaxRetries:     s.getInt(keyProviderRetries, d.Provider.MaxRetries),
			RatePerSecond:  s.getFloat(keyProviderRate, d.Provider.RatePerSecond),
		},
		Ingest: domain.IngestSettings{
			Concurrency: s.getInt(keyIngestConcurrent, d.Ingest.Concurrency),
		},
		Cache: domain.CacheSettings{
			Backend:       s.getCache(d.Cache.Backend),
			RedisAddr:     s.getString(keyCacheRedisAddr, d.Cache.RedisAddr),
			RedisPassword: s.configStore.GetString(keyCacheRedisPass),
			RedisDB:       s.configStore.GetInt(keyCacheRedisDB),
			TTLHours:      s.getInt(keyCacheTTLHours, d.Cache.TTLHours),
		},
	}

	return settings, nil
}

// Save persists application settings. Secrets that are empty or that came
// from the environment are not written.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyStorageBackend, string(settings.Storage.Backend)},
		{keyStorageDir, settings.Storage.Dir},
		{keyIndexBackend, string(settings.Index.Backend)},
		{keyChunkMaxChars, settings.Chunker.MaxChars},
		{keyChunkOverlap, settings.Chunker.OverlapSentences},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyRerankProvider, settings.Rerank.Provider.String()},
		{keyRerankModel, settings.Rerank.Model},
		{keyRerankBaseURL, settings.Rerank.BaseURL},
		{keySummaryProvider, settings.Summary.Provider.String()},
		{keySummaryModel, settings.Summary.Model},
		{keySummaryBaseURL, settings.Summary.BaseURL},
		{keySummaryMaxChars, settings.Summary.MaxChars},
		{keyQueryCandidates, settings.Query.Candidates},
		{keyQueryLimit, settings.Query.Limit},
		{keyQuerySummaries, settings.Query.Summaries},
		{keyProviderTimeout, settings.Provider.TimeoutSeconds},
		{keyProviderRetries, settings.Provider.MaxRetries},
		{keyProviderRate, settings.Provider.RatePerSecond},
		{keyIngestConcurrent, settings.Ingest.Concurrency},
		{keyCacheBackend, string(settings.Cache.Backend)},
		{keyCacheRedisAddr, settings.Cache.RedisAddr},
		{keyCacheRedisDB, settings.Cache.RedisDB},
		{keyCacheTTLHours, settings.Cache.TTLHours},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := []struct {
		key      string
		value    string
		provider domain.AIProvider
	}{
		{keyEmbedAPIKey, settings.Embedding.APIKey, settings.Embedding.Provider},
		{keyRerankAPIKey, settings.Rerank.APIKey, settings.Rerank.Provider},
		{keySummaryAPIKey, settings.Summary.APIKey, settings.Summary.Provider},
		{keyCacheRedisPass, settings.Cache.RedisPassword, ""},
	}
	for _, v := range secrets {
		if v.value == "" || v.value == s.envKey(v.provider) {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return s.configStore.Save()
}

// Set validates and stores a single key, then persists the file.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var stored any = value
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		stored = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		stored = f
	case kindProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, value)
		}
	case kindStorage:
		if !domain.StorageBackend(value).IsValid() {
			return fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, value)
		}
	case kindIndex:
		if !domain.IndexBackend(value).IsValid() {
			return fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidInput, value)
		}
	case kindCache:
		if !domain.CacheBackend(value).IsValid() {
			return fmt.Errorf("%w: unknown cache backend %q", domain.ErrInvalidInput, value)
		}
	case kindString:
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return s.configStore.Save()
}

// Validate checks that the current settings can run the pipelines.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !domain.SupportsEmbedding(settings.Embedding.Provider) {
		return fmt.Errorf("embedding provider %q cannot produce embeddings", settings.Embedding.Provider)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: set embedding.api_key or %s",
			domain.ErrEmbeddingUnavailable, apiKeyEnv[settings.Embedding.Provider])
	}
	if p := settings.Rerank.Provider; p != domain.AIProviderNone && !domain.SupportsRerank(p) {
		return fmt.Errorf("rerank provider %q cannot rerank", p)
	}
	if p := settings.Summary.Provider; p != domain.AIProviderNone && !domain.SupportsSummary(p) {
		return fmt.Errorf("summary provider %q cannot summarise", p)
	}
	if settings.Query.Summaries > settings.Query.Candidates {
		return fmt.Errorf("query.summaries (%d) must not exceed query.candidates (%d)",
			settings.Query.Summaries, settings.Query.Candidates)
	}
	return nil
}

// CheckProviders pings the provider behind each enabled stage. A failing
// provider is reported in its ProviderCheck, not as the returned error.
func (s *SettingsService) CheckProviders(ctx context.Context) ([]domain.ProviderCheck, error) {
	if s.validator == nil {
		return nil, fmt.Errorf("%w: no provider validator configured", domain.ErrNotImplemented)
	}
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}

	checks := []domain.ProviderCheck{{
		Stage:    "embedding",
		Provider: settings.Embedding.Provider,
		Err:      s.validator.ValidateEmbedding(ctx, &settings.Embedding),
	}}
	if !settings.Embedding.IsConfigured() && checks[0].Err == nil {
		checks[0].Err = fmt.Errorf("%w: %s is not configured", domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	if settings.Rerank.Provider != domain.AIProviderNone {
		checks = append(checks, domain.ProviderCheck{
			Stage:    "rerank",
			Provider: settings.Rerank.Provider,
			Err:      s.validator.ValidateRerank(ctx, &settings.Rerank),
		})
	}
	if settings.Summary.Provider != domain.AIProviderNone {
		checks = append(checks, domain.ProviderCheck{
			Stage:    "summary",
			Provider: settings.Summary.Provider,
			Err:      s.validator.ValidateSummary(ctx, &settings.Summary),
		})
	}
	return checks, nil
}

// Keys lists every key accepted by Set, sorted.
func (s *SettingsService) Keys() []string {
	return SettingKeys()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getStorage(defaultVal domain.StorageBackend) domain.StorageBackend {
	b := domain.StorageBackend(s.configStore.GetString(keyStorageBackend))
	if !b.IsValid() {
		return defaultVal
	}
	return b
}

func (s *SettingsService) getIndex(defaultVal domain.IndexBackend) domain.IndexBackend {
	b := domain.IndexBackend(s.configStore.GetString(keyIndexBackend))
	if !b.IsValid() {
		return defaultVal
	}
	return b
}

func (s *SettingsService) getCache(defaultVal domain.CacheBackend) domain.CacheBackend {
	b := domain.CacheBackend(s.configStore.GetString(keyCacheBackend))
	if !b.IsValid() {
		return defaultVal
	}
	return b
}

func (s *SettingsService) apiKey(key string, provider domain.AIProvider) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return s.envKey(provider)
}

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	if env, ok := apiKeyEnv[provider]; ok {
		return s.getenv(env)
	}
	return ""
}

func defaultModel(models map[domain.AIProvider]string, provider domain.AIProvider, fallback string) string {
	if m, ok := models[provider]; ok {
		return m
	}
	return fallback
}
