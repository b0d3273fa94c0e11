// Package anthropic provides a summariser adapter using the Anthropic API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/hask/internal/adapters/driven/provider"
	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// Ensure Summarizer implements the interfaces.
var (
	_ driven.Summarizer       = (*Summarizer)(nil)
	_ driven.PromptStoreAware = (*Summarizer)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-haiku-latest"
	DefaultTimeout = 120 * time.Second

	// AnthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"

	providerName = "anthropic"
)

// Config holds configuration for the Anthropic summariser.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use (default: claude-3-5-haiku-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Summarizer condenses page content with the messages API.
type Summarizer struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	promptStore driven.PromptStore
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// defaultSummarisePrompt is the fallback prompt when no PromptStore is configured.
const defaultSummarisePrompt = `Summarise the following web page in %d characters or less.
Say what the page is about. Return only the summary.

Content:
%s

Summary:`

// NewSummarizer creates a new Anthropic summariser.
func NewSummarizer(cfg Config) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic: API key is required", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Summarizer{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

func (s *Summarizer) headers() map[string]string {
	return map[string]string{
		"x-api-key":         s.apiKey,
		"anthropic-version": anthropicVersion,
	}
}

// Summarise creates a summary of page content.
func (s *Summarizer) Summarise(ctx context.Context, content string, maxLength int) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	prompt := fmt.Sprintf(s.loadPrompt(), maxLength, content)

	var resp messagesResponse
	err := provider.DoJSON(ctx, s.client, providerName, provider.Request{
		URL:     s.baseURL + "/v1/messages",
		Headers: s.headers(),
		Body: messagesRequest{
			Model:       s.model,
			Messages:    []messagesMessage{{Role: "user", Content: prompt}},
			MaxTokens:   max(maxLength/4, 16), // Anthropic requires max_tokens
			Temperature: 0.3,
		},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}

	if len(resp.Content) == 0 {
		return "", domain.Malformed(providerName, "no response content returned")
	}

	// Concatenate all text content blocks
	var result strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(result.String()), nil
}

// loadPrompt loads the prompt from the store, falling back to the default if unavailable.
func (s *Summarizer) loadPrompt() string {
	if s.promptStore == nil {
		return defaultSummarisePrompt
	}
	prompt, err := s.promptStore.Load(driven.PromptSummarise)
	if err != nil {
		return defaultSummarisePrompt
	}
	return prompt
}

// ModelName returns the name of the model being used.
func (s *Summarizer) ModelName() string {
	return s.model
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *Summarizer) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Ping validates the service is reachable by checking the /v1/models endpoint.
func (s *Summarizer) Ping(ctx context.Context) error {
	return provider.DoJSON(ctx, s.client, providerName, provider.Request{
		Method:  http.MethodGet,
		URL:     s.baseURL + "/v1/models",
		Headers: s.headers(),
	}, nil)
}

// Close releases resources.
func (s *Summarizer) Close() error {
	return nil
}
