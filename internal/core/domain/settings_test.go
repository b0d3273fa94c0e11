package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider_IsValid(t *testing.T) {
	for _, p := range []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderCohere, AIProviderLexical, AIProviderNone} {
		assert.True(t, p.IsValid(), p)
		assert.NotEqual(t, unknownDescription, p.Description(), p)
	}
	assert.False(t, AIProvider("").IsValid())
	assert.False(t, AIProvider("gemini").IsValid())
	assert.Equal(t, unknownDescription, AIProvider("gemini").Description())
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.True(t, AIProviderCohere.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.False(t, AIProviderLexical.RequiresAPIKey())
}

func TestCapabilities(t *testing.T) {
	assert.True(t, SupportsEmbedding(AIProviderCohere))
	assert.False(t, SupportsEmbedding(AIProviderAnthropic))
	assert.True(t, SupportsRerank(AIProviderLexical))
	assert.False(t, SupportsRerank(AIProviderOpenAI))
	assert.True(t, SupportsSummary(AIProviderAnthropic))
	assert.False(t, SupportsSummary(AIProviderLexical))
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"cohere with key", EmbeddingSettings{Provider: AIProviderCohere, APIKey: "k"}, true},
		{"cohere without key", EmbeddingSettings{Provider: AIProviderCohere}, false},
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"anthropic cannot embed", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
		{"empty", EmbeddingSettings{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestRerankAndSummarySettings_IsConfigured(t *testing.T) {
	assert.True(t, RerankSettings{Provider: AIProviderLexical}.IsConfigured())
	assert.False(t, RerankSettings{Provider: AIProviderCohere}.IsConfigured())
	assert.False(t, RerankSettings{Provider: AIProviderNone}.IsConfigured())
	assert.True(t, SummarySettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, SummarySettings{Provider: AIProviderNone}.IsConfigured())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, StorageSQLite, s.Storage.Backend)
	assert.Equal(t, IndexMemory, s.Index.Backend)
	assert.Equal(t, 800, s.Chunker.MaxChars)
	assert.Equal(t, AIProviderCohere, s.Embedding.Provider)
	assert.Equal(t, "embed-english-v3.0", s.Embedding.Model)
	assert.Equal(t, 20, s.Query.Candidates)
	assert.Equal(t, 3, s.Query.Summaries)
	assert.LessOrEqual(t, s.Query.Summaries, s.Query.Candidates)
	assert.Equal(t, 30*time.Second, s.Provider.Timeout())
	assert.Equal(t, 7*24*time.Hour, s.Cache.TTL())
	assert.True(t, s.Cache.Backend.IsValid())
	assert.False(t, s.Embedding.IsConfigured(), "api key must come from config or env")
}

func TestBackends_IsValid(t *testing.T) {
	assert.True(t, StorageBolt.IsValid())
	assert.False(t, StorageBackend("postgres").IsValid())
	assert.True(t, IndexChromem.IsValid())
	assert.False(t, IndexBackend("hnsw").IsValid())
	assert.True(t, CacheRedis.IsValid())
	assert.False(t, CacheBackend("memcached").IsValid())
}
