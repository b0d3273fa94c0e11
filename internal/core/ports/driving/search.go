package driving

import (
	"context"

	"github.com/custodia-labs/hask/internal/core/domain"
)

// QueryService answers free-text questions over saved pages.
type QueryService interface {
	// Query returns ranked pages. An empty index yields an empty slice.
	Query(ctx context.Context, text string, opts domain.QueryOptions) ([]domain.QueryResult, error)
}
