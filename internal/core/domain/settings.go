package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a service provider for embeddings, reranking or summaries.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderCohere is Cohere cloud API (embed, rerank, summarize).
	AIProviderCohere AIProvider = "cohere"

	// AIProviderLexical is the offline token-overlap reranker.
	AIProviderLexical AIProvider = "lexical"

	// AIProviderNone disables an optional stage.
	AIProviderNone AIProvider = "none"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic,
		AIProviderCohere, AIProviderLexical, AIProviderNone:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderCohere
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderLexical
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderCohere:
		return "Cohere (cloud)"
	case AIProviderLexical:
		return "Lexical overlap (offline)"
	case AIProviderNone:
		return "Disabled"
	default:
		return unknownDescription
	}
}

// StorageBackend selects the PageStore implementation.
type StorageBackend string

// Available storage backends.
const (
	StorageSQLite StorageBackend = "sqlite"
	StorageBolt   StorageBackend = "bolt"
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageSQLite, StorageBolt, StorageMemory:
		return true
	default:
		return false
	}
}

// IndexBackend selects the VectorIndex implementation.
type IndexBackend string

// Available vector index backends.
const (
	// IndexMemory is an exact linear scan with insertion-order tie breaks.
	IndexMemory IndexBackend = "memory"

	// IndexChromem stores vectors in a chromem-go collection.
	IndexChromem IndexBackend = "chromem"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	return b == IndexMemory || b == IndexChromem
}

// CacheBackend selects the embedding cache.
type CacheBackend string

// Available cache backends.
const (
	CacheNone   CacheBackend = "none"
	CacheMemory CacheBackend = "memory"
	CacheRedis  CacheBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheNone, CacheMemory, CacheRedis:
		return true
	default:
		return false
	}
}

// StorageSettings holds page store configuration.
type StorageSettings struct {
	Backend StorageBackend

	// Dir is the data directory. Empty means ~/.hask.
	Dir string
}

// IndexSettings holds vector index configuration.
type IndexSettings struct {
	Backend IndexBackend
}

// ChunkerSettings holds chunking configuration.
type ChunkerSettings struct {
	// MaxChars bounds every chunk, in runes.
	MaxChars int

	// OverlapSentences repeats trailing sentences at the start of the next chunk.
	OverlapSentences int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// BatchSize is the maximum number of texts per provider call.
	BatchSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !SupportsEmbedding(e.Provider) {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// RerankSettings holds reranker configuration.
type RerankSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured returns true if the reranker is set up.
func (r RerankSettings) IsConfigured() bool {
	if !SupportsRerank(r.Provider) {
		return false
	}
	if r.Provider.RequiresAPIKey() && r.APIKey == "" {
		return false
	}
	return true
}

// SummarySettings holds summariser configuration.
type SummarySettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// MaxChars bounds the truncated-prefix fallback and the requested summary length.
	MaxChars int
}

// IsConfigured returns true if the summariser is set up.
func (s SummarySettings) IsConfigured() bool {
	if !SupportsSummary(s.Provider) {
		return false
	}
	if s.Provider.RequiresAPIKey() && s.APIKey == "" {
		return false
	}
	return true
}

// QuerySettings holds query pipeline defaults.
type QuerySettings struct {
	Candidates int
	Limit      int
	Summaries  int
}

// Options converts the settings into per-query options.
func (q QuerySettings) Options() QueryOptions {
	return QueryOptions{Candidates: q.Candidates, Limit: q.Limit, Summaries: q.Summaries}
}

// ProviderSettings holds timeouts and retry policy for external calls.
type ProviderSettings struct {
	TimeoutSeconds int
	MaxRetries     int

	// RatePerSecond throttles calls per provider. Zero disables throttling.
	RatePerSecond float64
}

// Timeout returns the per-attempt timeout.
func (p ProviderSettings) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// IngestSettings holds ingestion configuration.
type IngestSettings struct {
	// Concurrency bounds parallel saves in a batch.
	Concurrency int
}

// CacheSettings holds embedding cache configuration.
type CacheSettings struct {
	Backend       CacheBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTLHours      int
}

// TTL returns the cache entry lifetime. Zero means no expiry.
func (c CacheSettings) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// AppSettings holds all application configuration.
type AppSettings struct {
	Storage   StorageSettings
	Index     IndexSettings
	Chunker   ChunkerSettings
	Embedding EmbeddingSettings
	Rerank    RerankSettings
	Summary   SummarySettings
	Query     QuerySettings
	Provider  ProviderSettings
	Ingest    IngestSettings
	Cache     CacheSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Cohere is the default provider for every AI stage; API keys are left empty
// and resolved from config or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Storage: StorageSettings{Backend: StorageSQLite},
		Index:   IndexSettings{Backend: IndexMemory},
		Chunker: ChunkerSettings{MaxChars: 800, OverlapSentences: 0},
		Embedding: EmbeddingSettings{
			Provider:  AIProviderCohere,
			Model:     DefaultEmbeddingModels()[AIProviderCohere],
			BatchSize: 96,
		},
		Rerank: RerankSettings{
			Provider: AIProviderCohere,
			Model:    DefaultRerankModels()[AIProviderCohere],
		},
		Summary: SummarySettings{
			Provider: AIProviderCohere,
			Model:    DefaultSummaryModels()[AIProviderCohere],
			MaxChars: 280,
		},
		Query:    QuerySettings{Candidates: 20, Limit: 10, Summaries: 3},
		Provider: ProviderSettings{TimeoutSeconds: 30, MaxRetries: 3, RatePerSecond: 5},
		Ingest:   IngestSettings{Concurrency: 4},
		Cache:    CacheSettings{Backend: CacheMemory, RedisAddr: "localhost:6379", TTLHours: 24 * 7},
	}
}

// SupportsEmbedding reports whether p can produce embeddings.
func SupportsEmbedding(p AIProvider) bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderCohere:
		return true
	default:
		return false
	}
}

// SupportsRerank reports whether p can rerank.
func SupportsRerank(p AIProvider) bool {
	return p == AIProviderCohere || p == AIProviderLexical
}

// SupportsSummary reports whether p can summarise.
func SupportsSummary(p AIProvider) bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderCohere:
		return true
	default:
		return false
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderCohere: "embed-english-v3.0",
	}
}

// DefaultRerankModels returns default models for each rerank provider.
func DefaultRerankModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderCohere: "rerank-english-v3.0",
	}
}

// DefaultSummaryModels returns default models for each summary provider.
func DefaultSummaryModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
		AIProviderCohere:    "command",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Cohere models
		"embed-english-v3.0":            1024,
		"embed-multilingual-v3.0":       1024,
		"embed-english-light-v3.0":      384,
		"embed-multilingual-light-v3.0": 384,
	}
}

// ProviderCheck is the outcome of contacting the provider behind one stage.
type ProviderCheck struct {
	// Stage is "embedding", "rerank" or "summary".
	Stage    string
	Provider AIProvider
	Err      error
}

// OK reports whether the provider answered.
func (c ProviderCheck) OK() bool {
	return c.Err == nil
}
