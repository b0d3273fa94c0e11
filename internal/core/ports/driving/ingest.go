package driving

import (
	"context"

	"github.com/custodia-labs/hask/internal/core/domain"
)

// IngestService saves pages into the second brain.
type IngestService interface {
	// Save runs one ingestion pipeline to a terminal state.
	// Failures are returned as *domain.IngestError.
	Save(ctx context.Context, req domain.SaveRequest) (*domain.IngestReport, error)

	// SaveBatch saves several pages concurrently. The returned slices are
	// index-aligned with reqs; exactly one of report or error is set per entry.
	SaveBatch(ctx context.Context, reqs []domain.SaveRequest) ([]*domain.IngestReport, []error)

	// Check reports whether a page is stored for the normalised url.
	Check(ctx context.Context, url string) (bool, error)

	// Delete removes a page, its chunks and their index entries.
	Delete(ctx context.Context, url string) error
}
