package driven

// PromptStore provides access to summariser prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

const (
	// PromptSummarise creates summaries of page content.
	// The prompt template expects %d (max length) and %s (content) placeholders.
	PromptSummarise = "summarise"
)

// PromptStoreAware is implemented by summarisers that accept custom prompts.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
