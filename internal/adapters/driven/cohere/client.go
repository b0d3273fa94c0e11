// Package cohere provides embedding, rerank and summarise adapters for the
// Cohere v1 API. One Client is shared by the three services.
package cohere

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/hask/internal/adapters/driven/provider"
	"github.com/custodia-labs/hask/internal/core/domain"
)

// Default configuration values.
const (
	DefaultBaseURL        = "https://api.cohere.ai/v1"
	DefaultEmbedModel     = "embed-english-v3.0"
	DefaultRerankModel    = "rerank-english-v3.0"
	DefaultSummarizeModel = "command"
	DefaultTimeout        = 60 * time.Second

	providerName = "cohere"
)

// Config holds configuration for the Cohere client.
type Config struct {
	// APIKey is the Cohere API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.cohere.ai/v1).
	BaseURL string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// Client is an authenticated Cohere HTTP client.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates a Cohere client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: cohere: API key is required", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return provider.DoJSON(ctx, c.http, providerName, provider.Request{
		URL:     c.baseURL + path,
		Headers: c.headers(),
		Body:    body,
	}, out)
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization":      "Bearer " + c.apiKey,
		"X-Client-Name":      "hask",
		"Cohere-Api-Version": "2022-12-06",
	}
}

// Ping validates the API key.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := c.post(ctx, "/check-api-key", struct{}{}, &resp); err != nil {
		return err
	}
	if !resp.Valid {
		return domain.NewProviderError(providerName, http.StatusUnauthorized, "invalid API key")
	}
	return nil
}
