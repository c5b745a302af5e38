package prompt

// Config describes a prompt definition loaded from a markdown file with YAML frontmatter.
type Config struct {
	Slug           string `yaml:"slug" json:"slug"`
	Name           string `yaml:"name,omitempty" json:"name,omitempty"`
	Description    string `yaml:"description,omitempty" json:"description,omitempty"`
	Version        string `yaml:"version,omitempty" json:"version,omitempty"`
	Author         string `yaml:"author,omitempty" json:"author,omitempty"`
	Updated        string `yaml:"updated,omitempty" json:"updated,omitempty"`
	SystemTemplate string `yaml:"system_template,omitempty" json:"system_template,omitempty"`
}

// Prompt wraps a validated prompt configuration with its source.
type Prompt struct {
	Config Config
	Source string
}

// System returns the text sent verbatim as the system message.
func (p *Prompt) System() string {
	if p == nil {
		return ""
	}
	return p.Config.SystemTemplate
}
