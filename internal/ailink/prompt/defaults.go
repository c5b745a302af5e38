package prompt

import (
	"embed"
	"fmt"
)

// DefaultSlug names the built-in assistant prompt.
const DefaultSlug = "ixra-assistant"

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// Default loads the embedded assistant prompt.
func Default() (*Prompt, error) {
	name := DefaultSlug + ".md"
	data, err := defaultPromptsFS.ReadFile("prompts/" + name)
	if err != nil {
		return nil, fmt.Errorf("read embedded prompt %s: %w", name, err)
	}
	return Load(name, data)
}
