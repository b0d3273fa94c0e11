package cohere

import (
	"context"

	"github.com/custodia-labs/hask/internal/adapters/driven/provider"
	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Input types tell v3 models whether a text is stored or searched for.
const (
	inputSearchDocument = "search_document"
	inputSearchQuery    = "search_query"
)

var modelDimensions = map[string]int{
	"embed-english-v3.0":            1024,
	"embed-multilingual-v3.0":       1024,
	"embed-english-light-v3.0":      384,
	"embed-multilingual-light-v3.0": 384,
}

// EmbeddingService generates embeddings with /embed.
// Single-text Embed is used for queries; EmbedBatch for page chunks.
type EmbeddingService struct {
	client     *Client
	model      string
	dimensions int
}

type embedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
	Truncate  string   `json:"truncate"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewEmbeddingService creates an embedding service for model.
func NewEmbeddingService(client *Client, model string) *EmbeddingService {
	if model == "" {
		model = DefaultEmbedModel
	}
	return &EmbeddingService{client: client, model: model, dimensions: modelDimensions[model]}
}

// Embed embeds a search query.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embed(ctx, []string{text}, inputSearchQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds documents for storage.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return s.embed(ctx, texts, inputSearchDocument)
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	var resp embedResponse
	err := s.client.post(ctx, "/embed", embedRequest{
		Texts:     texts,
		Model:     s.model,
		InputType: inputType,
		Truncate:  "END",
	}, &resp)
	if err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(resp.Embeddings))
	for i, v := range resp.Embeddings {
		vecs[i] = provider.ToFloat32(v)
	}
	if err := provider.CheckVectors(providerName, len(texts), vecs); err != nil {
		return nil, err
	}
	if s.dimensions > 0 && len(vecs[0]) != s.dimensions {
		return nil, domain.Malformed(providerName, "got %d dimensions, want %d", len(vecs[0]), s.dimensions)
	}
	return vecs, nil
}

// Dimensions returns the embedding vector size, or zero for unknown models.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the embedding model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
