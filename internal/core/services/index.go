package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
	"github.com/custodia-labs/hask/internal/core/ports/driving"
	"github.com/custodia-labs/hask/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService treats the vector index as a cache over stored chunks.
type IndexService struct {
	pages driven.PageStore
	index driven.VectorIndex
}

// NewIndexService creates a new index service.
func NewIndexService(pages driven.PageStore, index driven.VectorIndex) *IndexService {
	return &IndexService{pages: pages, index: index}
}

// Rebuild clears the index and replays every stored chunk.
// Chunks without an embedding, or whose dimensions disagree with the first
// indexed chunk, are skipped with a warning.
func (s *IndexService) Rebuild(ctx context.Context) (int, error) {
	logger.Section("Index rebuild", "")

	chunks, err := s.pages.ListChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chunks: %w", err)
	}
	if err := s.index.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset index: %w", err)
	}

	indexed, skipped := 0, 0
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			skipped++
			continue
		}
		if err := s.index.Add(ctx, c.ID, c.Embedding); err != nil {
			if errors.Is(err, domain.ErrDimensionMismatch) {
				logger.Warn("Skipping chunk %s of %s: %v", c.ID, c.PageURL, err)
				skipped++
				continue
			}
			return indexed, fmt.Errorf("add vector %s: %w", c.ID, err)
		}
		indexed++
	}

	logger.Info("Rebuilt index: %d vectors, %d skipped", indexed, skipped)
	return indexed, nil
}

// Stats reports store and index sizes.
func (s *IndexService) Stats(ctx context.Context) (driving.IndexStats, error) {
	pages, err := s.pages.List(ctx)
	if err != nil {
		return driving.IndexStats{}, fmt.Errorf("list pages: %w", err)
	}
	chunks, err := s.pages.ListChunks(ctx)
	if err != nil {
		return driving.IndexStats{}, fmt.Errorf("list chunks: %w", err)
	}
	return driving.IndexStats{
		Pages:   len(pages),
		Chunks:  len(chunks),
		Indexed: s.index.Len(),
	}, nil
}
