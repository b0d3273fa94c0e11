package driven

import "context"

// Summarizer condenses page content for display.
// This is an optional service - when nil, cards show a truncated prefix.
//
// Implementations may include:
//   - Cohere (summarize endpoint)
//   - OpenAI, Anthropic, Ollama (prompted completion)
type Summarizer interface {
	// Summarise creates a summary of content of roughly maxLength characters.
	// Best effort: facts are not guaranteed to be preserved.
	Summarise(ctx context.Context, content string, maxLength int) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
