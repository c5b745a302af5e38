package prompt

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load parses and validates a prompt definition.
//
// The system template comes from the system_template key when present,
// otherwise from the markdown body following the frontmatter. Files without
// frontmatter are accepted and take their slug from the file name.
func Load(source string, data []byte) (*Prompt, error) {
	config, body, err := parseYAMLWithFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}

	if strings.TrimSpace(config.SystemTemplate) == "" {
		config.SystemTemplate = strings.TrimSpace(body)
	}

	if strings.TrimSpace(config.SystemTemplate) == "" {
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}
	if strings.TrimSpace(config.Slug) == "" {
		config.Slug = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}

	return &Prompt{Config: config, Source: source}, nil
}

// LoadFile reads a prompt from disk.
func LoadFile(path string) (*Prompt, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- prompt path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read prompt %s: %w", path, err)
	}
	return Load(path, data)
}

// Resolve returns the prompt at path, or the embedded default when path is empty.
func Resolve(path string) (*Prompt, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return LoadFile(path)
}

func parseYAMLWithFrontmatter(data []byte) (Config, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Config{}, "", fmt.Errorf("empty prompt")
	}

	lines := bufio.NewScanner(bytes.NewReader(trimmed))
	lines.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		frontmatter []string
		body        []string
		inFront     bool
		headerSeen  bool
		first       = true
	)

	for lines.Scan() {
		line := lines.Text()
		switch {
		case first && strings.TrimSpace(line) == "---":
			headerSeen = true
			inFront = true
		case headerSeen && inFront && strings.TrimSpace(line) == "---":
			inFront = false
		default:
			if inFront {
				frontmatter = append(frontmatter, line)
			} else {
				body = append(body, line)
			}
		}
		first = false
	}
	if err := lines.Err(); err != nil {
		return Config{}, "", err
	}

	var cfg Config
	if headerSeen {
		if inFront {
			return Config{}, "", fmt.Errorf("unterminated frontmatter")
		}
		if err := yaml.Unmarshal([]byte(strings.Join(frontmatter, "\n")), &cfg); err != nil {
			return Config{}, "", fmt.Errorf("invalid frontmatter: %w", err)
		}
	}

	return cfg, strings.Join(body, "\n"), nil
}
