package ai

import (
	"context"

	"github.com/custodia-labs/hask/internal/adapters/driven/cohere"
	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.ProviderValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding creates the embedding service and pings the provider.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateRerank checks the reranker credentials. The lexical reranker has
// nothing to check.
func (v *ConfigValidator) ValidateRerank(ctx context.Context, settings *domain.RerankSettings) error {
	if _, err := CreateReranker(settings); err != nil {
		return err
	}
	if settings == nil || settings.Provider != domain.AIProviderCohere {
		return nil
	}

	client, err := cohere.NewClient(cohere.Config{APIKey: settings.APIKey, BaseURL: settings.BaseURL})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return client.Ping(ctx)
}

// ValidateSummary creates the summariser and pings the provider.
func (v *ConfigValidator) ValidateSummary(ctx context.Context, settings *domain.SummarySettings) error {
	svc, err := CreateSummarizer(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}
