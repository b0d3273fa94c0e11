package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/hask/internal/core/ports/driven"
	"github.com/custodia-labs/hask/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads summariser prompts from user-editable files on disk,
// falling back to built-in defaults.
//
// Files are only created on the first Load, not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts are written to disk on first use and serve as fallbacks.
var defaultPrompts = map[string]string{
	driven.PromptSummarise: `Summarise the following web page in %d characters or less.
Say what the page is about so the reader can decide whether to revisit it.
Return only the summary.

Page:
%s

Summary:`,
}

// placeholders lists the verbs each prompt must keep, in order.
var placeholders = map[string][]string{
	driven.PromptSummarise: {"%d", "%s"},
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.hask/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".hask", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// A missing file, or one that lost its placeholders, yields the default.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)

	def, known := defaultPrompts[name]
	if s.initErr != nil {
		if known {
			return def, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	switch {
	case err != nil && known:
		prompt = def
	case err != nil:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	case !hasPlaceholders(prompt, placeholders[name]):
		logger.Warn("Prompt %s is missing %v placeholders, using default", name, placeholders[name])
		prompt = def
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// hasPlaceholders reports whether verbs appear in prompt in order.
func hasPlaceholders(prompt string, verbs []string) bool {
	rest := prompt
	for _, v := range verbs {
		i := strings.Index(rest, v)
		if i < 0 {
			return false
		}
		rest = rest[i+len(v):]
	}
	return true
}

// initialise creates the prompt directory and default files.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# Hask Prompts

Edit these files to change how saved pages are summarised in search results.

- ` + "`summarise.txt`" + ` - summary shown on the top search results

` + "`%d`" + ` is replaced by the maximum summary length and ` + "`%s`" + ` by the
page text, in that order. A prompt missing either placeholder is ignored and
the built-in default is used. Delete a file to restore its default.

Only the OpenAI, Anthropic and Ollama summarisers use prompts; Cohere's
summarize endpoint does not take one.
`
	return os.WriteFile(path, []byte(content), 0600)
}
