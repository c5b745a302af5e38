package ailink

import (
	"strings"
	"time"
)

// Defaults for the chat assistant completion provider.
const (
	DefaultProvider            = "openai"
	DefaultModel               = "gpt-5-nano-2025-08-07"
	DefaultMaxCompletionTokens = 300
	DefaultTimeout             = 60 * time.Second
)

// DefaultPlaceholderKeys are example credentials shipped in env templates.
var DefaultPlaceholderKeys = []string{"sk-your-key-here"}

// Config defines the completion provider used by the chat assistant.
//
// This is intentionally self-contained so it can later be extracted as a
// standalone library configuration subtree.
type Config struct {
	Provider            string        `mapstructure:"provider"`
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	MaxCompletionTokens int           `mapstructure:"max_completion_tokens"`
	ReasoningEffort     string        `mapstructure:"reasoning_effort"`
	Timeout             time.Duration `mapstructure:"timeout"`

	// PlaceholderKeys are API key values treated as "not configured".
	PlaceholderKeys []string `mapstructure:"placeholder_keys"`
}

// Configured reports whether a real credential is present.
func (c Config) Configured() bool {
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return false
	}
	placeholders := c.PlaceholderKeys
	if len(placeholders) == 0 {
		placeholders = DefaultPlaceholderKeys
	}
	for _, p := range placeholders {
		if strings.EqualFold(key, strings.TrimSpace(p)) {
			return false
		}
	}
	return true
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Provider) == "" {
		c.Provider = DefaultProvider
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if c.MaxCompletionTokens <= 0 {
		c.MaxCompletionTokens = DefaultMaxCompletionTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if len(c.PlaceholderKeys) == 0 {
		c.PlaceholderKeys = DefaultPlaceholderKeys
	}
	return c
}
