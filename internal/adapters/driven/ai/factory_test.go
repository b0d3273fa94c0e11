package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hask/internal/adapters/driven/resilient"
	"github.com/custodia-labs/hask/internal/core/domain"
)

func TestServices_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &Services{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantNil  bool
		wantErr  error
	}{
		{
			name:    "nil settings returns nil",
			wantNil: true,
		},
		{
			name:     "empty settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name: "openai without key returns nil",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
			},
			wantNil: true,
		},
		{
			name: "cohere provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderCohere,
				APIKey:   "co-key",
				Model:    "embed-english-v3.0",
			},
		},
		{
			name: "anthropic provider is unsupported",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
			},
			wantNil: true,
			wantErr: domain.ErrUnsupportedType,
		},
		{
			name: "lexical provider is unsupported",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderLexical,
			},
			wantNil: true,
			wantErr: domain.ErrUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
			} else {
				require.NotNil(t, svc)
				assert.Equal(t, tt.settings.Model, svc.ModelName())
			}
		})
	}
}

func TestCreateReranker(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.RerankSettings
		wantNil   bool
		wantErr   bool
		wantModel string
	}{
		{name: "nil settings", wantNil: true},
		{name: "disabled", settings: &domain.RerankSettings{Provider: domain.AIProviderNone}, wantNil: true},
		{
			name:      "lexical",
			settings:  &domain.RerankSettings{Provider: domain.AIProviderLexical},
			wantModel: "lexical-ochiai",
		},
		{
			name:      "cohere",
			settings:  &domain.RerankSettings{Provider: domain.AIProviderCohere, APIKey: "k", Model: "rerank-english-v3.0"},
			wantModel: "rerank-english-v3.0",
		},
		{
			name:     "cohere without key",
			settings: &domain.RerankSettings{Provider: domain.AIProviderCohere},
			wantNil:  true,
			wantErr:  true,
		},
		{
			name:     "openai cannot rerank",
			settings: &domain.RerankSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"},
			wantNil:  true,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := CreateReranker(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, r)
				return
			}
			require.NotNil(t, r)
			assert.Equal(t, tt.wantModel, r.ModelName())
		})
	}
}

func TestCreateSummarizer(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.SummarySettings
		wantNil  bool
		wantErr  bool
	}{
		{name: "nil settings", wantNil: true},
		{name: "disabled", settings: &domain.SummarySettings{Provider: domain.AIProviderNone}, wantNil: true},
		{name: "ollama", settings: &domain.SummarySettings{Provider: domain.AIProviderOllama, Model: "llama3.2"}},
		{name: "openai", settings: &domain.SummarySettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"}},
		{
			name:     "anthropic",
			settings: &domain.SummarySettings{Provider: domain.AIProviderAnthropic, APIKey: "k", Model: "claude-3-5-haiku-latest"},
		},
		{name: "cohere", settings: &domain.SummarySettings{Provider: domain.AIProviderCohere, APIKey: "k", Model: "command"}},
		{name: "cohere without key", settings: &domain.SummarySettings{Provider: domain.AIProviderCohere}, wantNil: true, wantErr: true},
		{name: "lexical cannot summarise", settings: &domain.SummarySettings{Provider: domain.AIProviderLexical}, wantNil: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := CreateSummarizer(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, s)
				return
			}
			require.NotNil(t, s)
			assert.Equal(t, tt.settings.Model, s.ModelName())
		})
	}
}

func TestCreateEmbeddingCache(t *testing.T) {
	ctx := context.Background()

	c, err := CreateEmbeddingCache(ctx, domain.CacheSettings{Backend: domain.CacheNone})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = CreateEmbeddingCache(ctx, domain.CacheSettings{Backend: domain.CacheMemory, TTLHours: 1})
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = CreateEmbeddingCache(ctx, domain.CacheSettings{Backend: domain.CacheRedis})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = CreateEmbeddingCache(ctx, domain.CacheSettings{Backend: "memcached"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func localSettings(ollamaURL string) *domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: ollamaURL, Model: "all-minilm"}
	s.Rerank = domain.RerankSettings{Provider: domain.AIProviderLexical}
	s.Summary = domain.SummarySettings{Provider: domain.AIProviderNone}
	s.Cache = domain.CacheSettings{Backend: domain.CacheMemory}
	return &s
}

func TestBuild_LocalStack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svcs, err := Build(context.Background(), localSettings(srv.URL), nil)
	require.NoError(t, err)
	defer svcs.Close()

	assert.IsType(t, &resilient.CachedEmbedder{}, svcs.Embedder)
	assert.NotNil(t, svcs.Cache)
	assert.IsType(t, &resilient.Reranker{}, svcs.Reranker)
	assert.Nil(t, svcs.Summarizer)
	assert.Empty(t, svcs.Warnings)
	assert.Equal(t, "all-minilm", svcs.Embedder.ModelName())
}

func TestBuild_OptionalStagesDegradeToWarnings(t *testing.T) {
	settings := localSettings("http://localhost:11434")
	settings.Rerank = domain.RerankSettings{Provider: domain.AIProviderCohere}
	settings.Summary = domain.SummarySettings{Provider: domain.AIProviderAnthropic}
	settings.Cache = domain.CacheSettings{Backend: domain.CacheRedis}

	svcs, err := Build(context.Background(), settings, nil)
	require.NoError(t, err)

	assert.Nil(t, svcs.Reranker)
	assert.Nil(t, svcs.Summarizer)
	assert.Nil(t, svcs.Cache)
	assert.IsType(t, &resilient.Embedder{}, svcs.Embedder)
	assert.Len(t, svcs.Warnings, 3)
}

func TestBuild_EmbeddingRequired(t *testing.T) {
	settings := localSettings("")
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderCohere}

	_, err := Build(context.Background(), settings, nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"}
	_, err = Build(context.Background(), settings, nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
