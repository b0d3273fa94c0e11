package cohere

import (
	"context"
	"strings"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// Ensure Summarizer implements the interface.
var _ driven.Summarizer = (*Summarizer)(nil)

// minSummarizeChars is the shortest text /summarize accepts.
const minSummarizeChars = 250

// Summarizer condenses text with /summarize.
type Summarizer struct {
	client *Client
	model  string
}

type summarizeRequest struct {
	Text              string `json:"text"`
	Model             string `json:"model"`
	Length            string `json:"length"`
	Format            string `json:"format"`
	Extractiveness    string `json:"extractiveness"`
	AdditionalCommand string `json:"additional_command,omitempty"`
}

type summarizeResponse struct {
	Summary *string `json:"summary"`
}

// NewSummarizer creates a summariser for model.
func NewSummarizer(client *Client, model string) *Summarizer {
	if model == "" {
		model = DefaultSummarizeModel
	}
	return &Summarizer{client: client, model: model}
}

// Summarise asks for a short paragraph. Texts below the endpoint minimum are
// returned unchanged.
func (s *Summarizer) Summarise(ctx context.Context, content string, maxLength int) (string, error) {
	content = strings.TrimSpace(content)
	if len([]rune(content)) < minSummarizeChars {
		return content, nil
	}

	var resp summarizeResponse
	err := s.client.post(ctx, "/summarize", summarizeRequest{
		Text:              content,
		Model:             s.model,
		Length:            lengthFor(maxLength),
		Format:            "paragraph",
		Extractiveness:    "auto",
		AdditionalCommand: "focusing on what the page is about",
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Summary == nil {
		return "", domain.Malformed(providerName, "summary missing")
	}
	return strings.TrimSpace(*resp.Summary), nil
}

// lengthFor maps a character budget onto the endpoint's length buckets.
func lengthFor(maxLength int) string {
	switch {
	case maxLength <= 400:
		return "short"
	case maxLength <= 1000:
		return "medium"
	default:
		return "long"
	}
}

// ModelName returns the summarise model.
func (s *Summarizer) ModelName() string {
	return s.model
}

// Ping validates the API key.
func (s *Summarizer) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close releases resources.
func (s *Summarizer) Close() error {
	return nil
}
