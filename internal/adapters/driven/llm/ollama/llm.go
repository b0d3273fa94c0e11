// Package ollama provides a summariser adapter using a local Ollama server.
package ollama

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
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second

	providerName = "ollama"
)

// Config holds configuration for the Ollama summariser.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Summarizer condenses page content with /api/generate.
type Summarizer struct {
	client      *http.Client
	baseURL     string
	model       string
	promptStore driven.PromptStore
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// defaultSummarisePrompt is the fallback prompt when no PromptStore is configured.
const defaultSummarisePrompt = `Summarise the following web page in %d characters or less.
Say what the page is about. Return only the summary.

Content:
%s

Summary:`

// NewSummarizer creates a new Ollama summariser.
func NewSummarizer(cfg Config) *Summarizer {
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
		model:   cfg.Model,
	}
}

// Summarise creates a summary of page content.
func (s *Summarizer) Summarise(ctx context.Context, content string, maxLength int) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	prompt := fmt.Sprintf(s.loadPrompt(), maxLength, content)

	var resp generateResponse
	err := provider.DoJSON(ctx, s.client, providerName, provider.Request{
		URL: s.baseURL + "/api/generate",
		Body: generateRequest{
			Model:  s.model,
			Prompt: prompt,
			Stream: false,
			Options: &options{
				NumPredict:  max(maxLength/4, 16),
				Temperature: 0.3,
			},
		},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}
	if resp.Response == nil {
		return "", domain.Malformed(providerName, "response field missing")
	}
	return strings.TrimSpace(*resp.Response), nil
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

// Ping validates the server is reachable by checking the /api/tags endpoint.
func (s *Summarizer) Ping(ctx context.Context) error {
	return provider.DoJSON(ctx, s.client, providerName, provider.Request{
		Method: http.MethodGet,
		URL:    s.baseURL + "/api/tags",
	}, nil)
}

// Close releases resources.
func (s *Summarizer) Close() error {
	return nil
}
