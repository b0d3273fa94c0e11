// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/hask/internal/adapters/driven/cohere"
	memorycache "github.com/custodia-labs/hask/internal/adapters/driven/embedcache/memory"
	rediscache "github.com/custodia-labs/hask/internal/adapters/driven/embedcache/redis"
	ollamaembed "github.com/custodia-labs/hask/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/hask/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/hask/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/hask/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/hask/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/hask/internal/adapters/driven/rerank/lexical"
	"github.com/custodia-labs/hask/internal/adapters/driven/resilient"
	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
	"github.com/custodia-labs/hask/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the AI adapters the pipelines run on.
type Services struct {
	Embedder driven.EmbeddingService

	// Reranker is nil when reranking is disabled; vector order is kept.
	Reranker driven.Reranker

	// Summarizer is nil when summaries are disabled; cards show a prefix.
	Summarizer driven.Summarizer

	// Cache is the embedding cache behind Embedder, if any.
	Cache driven.EmbeddingCache

	// Warnings lists non-fatal issues that disabled an optional stage.
	Warnings []string
}

// Close releases all resources held by Services.
func (s *Services) Close() {
	if s.Embedder != nil {
		s.Embedder.Close()
	}
	if s.Summarizer != nil {
		s.Summarizer.Close()
	}
}

// Build creates every configured AI service from settings.
//
// The embedder is required; a failure to create it is returned. The
// reranker, summariser and embedding cache are optional: failures are
// recorded as warnings and the stage is disabled. Every provider is wrapped
// with the retry and throttle policy from settings.Provider.
func Build(ctx context.Context, settings *domain.AppSettings, prompts driven.PromptStore) (*Services, error) {
	policy := resilient.PolicyFromSettings(settings.Provider)
	out := &Services{}

	embedder, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'hask settings set embedding.provider ...' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: %s needs an API key", domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	out.Embedder = resilient.NewEmbedder(settings.Embedding.Provider.String(), embedder, policy)

	cache, err := CreateEmbeddingCache(ctx, settings.Cache)
	if err != nil {
		out.warn("embedding cache disabled: %v", err)
	} else if cache != nil {
		out.Cache = cache
		out.Embedder = resilient.NewCachedEmbedder(out.Embedder, cache)
	}

	reranker, err := CreateReranker(&settings.Rerank)
	switch {
	case err != nil:
		out.warn("reranker disabled: %v", err)
	case reranker != nil:
		out.Reranker = resilient.NewReranker(settings.Rerank.Provider.String(), reranker, policy)
	}

	summarizer, err := CreateSummarizer(&settings.Summary)
	switch {
	case err != nil:
		out.warn("summariser disabled: %v", err)
	case summarizer != nil:
		if aware, ok := summarizer.(driven.PromptStoreAware); ok && prompts != nil {
			aware.SetPromptStore(prompts)
		}
		out.Summarizer = resilient.NewSummarizer(settings.Summary.Provider.String(), summarizer, policy)
	}

	return out, nil
}

func (s *Services) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("%s", msg)
	s.Warnings = append(s.Warnings, msg)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		if settings != nil && settings.Provider != "" && !domain.SupportsEmbedding(settings.Provider) {
			return nil, fmt.Errorf("%w: %s does not support embeddings", domain.ErrUnsupportedType, settings.Provider)
		}
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: domain.EmbeddingDimensions()[settings.Model],
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: domain.EmbeddingDimensions()[settings.Model],
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderCohere:
		client, err := cohere.NewClient(cohere.Config{APIKey: settings.APIKey, BaseURL: settings.BaseURL})
		if err != nil {
			return nil, err
		}
		return cohere.NewEmbeddingService(client, settings.Model), nil

	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateReranker creates the configured reranker.
// Returns nil when reranking is disabled or not configured.
func CreateReranker(settings *domain.RerankSettings) (driven.Reranker, error) {
	if settings == nil || settings.Provider == domain.AIProviderNone || settings.Provider == "" {
		return nil, nil
	}
	if !domain.SupportsRerank(settings.Provider) {
		return nil, fmt.Errorf("%w: rerank provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%s reranker needs an API key", settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderLexical:
		return lexical.New(), nil
	case domain.AIProviderCohere:
		client, err := cohere.NewClient(cohere.Config{APIKey: settings.APIKey, BaseURL: settings.BaseURL})
		if err != nil {
			return nil, err
		}
		return cohere.NewReranker(client, settings.Model), nil
	default:
		return nil, fmt.Errorf("%w: rerank provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateSummarizer creates the configured summariser.
// Returns nil when summaries are disabled or not configured.
func CreateSummarizer(settings *domain.SummarySettings) (driven.Summarizer, error) {
	if settings == nil || settings.Provider == domain.AIProviderNone || settings.Provider == "" {
		return nil, nil
	}
	if !domain.SupportsSummary(settings.Provider) {
		return nil, fmt.Errorf("%w: summary provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%s summariser needs an API key", settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewSummarizer(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaillm.NewSummarizer(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderAnthropic:
		svc, err := anthropicllm.NewSummarizer(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderCohere:
		client, err := cohere.NewClient(cohere.Config{APIKey: settings.APIKey, BaseURL: settings.BaseURL})
		if err != nil {
			return nil, err
		}
		return cohere.NewSummarizer(client, settings.Model), nil

	default:
		return nil, fmt.Errorf("%w: summary provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateEmbeddingCache creates the configured embedding cache.
// Returns nil when caching is disabled.
func CreateEmbeddingCache(ctx context.Context, settings domain.CacheSettings) (driven.EmbeddingCache, error) {
	switch settings.Backend {
	case domain.CacheNone, "":
		return nil, nil
	case domain.CacheMemory:
		return memorycache.New(memorycache.DefaultMaxEntries, settings.TTL()), nil
	case domain.CacheRedis:
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return rediscache.New(ctx, rediscache.Config{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
			TTL:      settings.TTL(),
		})
	default:
		return nil, fmt.Errorf("%w: cache backend %s", domain.ErrUnsupportedType, settings.Backend)
	}
}
