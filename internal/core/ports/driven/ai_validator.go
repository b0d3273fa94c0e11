package driven

import (
	"context"

	"github.com/custodia-labs/hask/internal/core/domain"
)

// ProviderValidator checks provider settings by contacting the provider.
// Unconfigured or disabled stages validate as nil.
type ProviderValidator interface {
	// ValidateEmbedding creates the embedding service and pings it.
	ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error

	// ValidateRerank checks that the reranker's credentials are accepted.
	ValidateRerank(ctx context.Context, settings *domain.RerankSettings) error

	// ValidateSummary creates the summariser and pings it.
	ValidateSummary(ctx context.Context, settings *domain.SummarySettings) error
}
