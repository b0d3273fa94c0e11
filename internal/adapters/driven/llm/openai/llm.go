// Package openai provides a summariser adapter using the OpenAI chat API.
package openai

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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second

	providerName = "openai"
)

// Config holds configuration for the OpenAI summariser.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Summarizer condenses page content with a chat completion.
type Summarizer struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	promptStore driven.PromptStore
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// defaultSummarisePrompt is the fallback prompt when no PromptStore is configured.
const defaultSummarisePrompt = `Summarise the following web page in %d characters or less.
Say what the page is about. Return only the summary.

Content:
%s

Summary:`

// NewSummarizer creates a new OpenAI summariser.
func NewSummarizer(cfg Config) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: API key is required", domain.ErrInvalidInput)
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

// Summarise creates a summary of page content.
func (s *Summarizer) Summarise(ctx context.Context, content string, maxLength int) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	prompt := fmt.Sprintf(s.loadPrompt(), maxLength, content)

	var resp chatCompletionResponse
	err := provider.DoJSON(ctx, s.client, providerName, provider.Request{
		URL:     s.baseURL + "/chat/completions",
		Headers: map[string]string{"Authorization": "Bearer " + s.apiKey},
		Body: chatCompletionRequest{
			Model:       s.model,
			Messages:    []chatCompletionMsg{{Role: "user", Content: prompt}},
			MaxTokens:   max(maxLength/4, 16), // Rough estimate: 4 chars per token
			Temperature: 0.3,
		},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", domain.Malformed(providerName, "no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
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
// If not set, the service uses the built-in prompt.
func (s *Summarizer) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *Summarizer) Ping(ctx context.Context) error {
	return provider.DoJSON(ctx, s.client, providerName, provider.Request{
		Method:  http.MethodGet,
		URL:     s.baseURL + "/models",
		Headers: map[string]string{"Authorization": "Bearer " + s.apiKey},
	}, nil)
}

// Close releases resources.
func (s *Summarizer) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
