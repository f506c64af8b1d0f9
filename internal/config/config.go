package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = "trackshift.yaml"

// Text formatting dialects a Redmine instance may be configured with.
const (
	TextFormatMarkdown = "markdown"
	TextFormatTextile  = "textile"
	TextFormatNone     = "none"
)

// ConfigurationError is the only fatal error class of a run. It is detected
// once at startup; everything else degrades per issue.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// RedmineConfig holds connection settings for the source instance.
type RedmineConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	TextFormat string `yaml:"text_format"`
	PageSize   int    `yaml:"page_size"`
}

// ExportConfig holds feature toggles for the export run.
type ExportConfig struct {
	Issues             bool `yaml:"issues"`
	Links              bool `yaml:"links"`
	Journals           bool `yaml:"journals"`
	AllowGroupAssignee bool `yaml:"allow_group_assignee"`
}

// ResourceMapping configures how one source resource type maps to a
// destination type: which dest type is fixed for it, the global value table,
// and per-project overrides keyed by project identifier.
type ResourceMapping struct {
	Resource string                       `yaml:"resource"`
	Dest     string                       `yaml:"dest"`
	Values   map[string]string            `yaml:"values"`
	Projects map[string]map[string]string `yaml:"projects"`
}

// FieldMapping associates a source field with zero or one destination
// fields; a missing entry means the field is dropped from the export.
type FieldMapping struct {
	Source string `yaml:"source"`
	Dest   string `yaml:"dest"`
}

// Config is the loaded trackshift configuration. Immutable for the run.
type Config struct {
	Redmine  RedmineConfig     `yaml:"redmine"`
	Export   ExportConfig      `yaml:"export"`
	Mappings []ResourceMapping `yaml:"mappings"`
	Fields   []FieldMapping    `yaml:"fields"`

	// DynamicDisabled lists resource types that must never prompt; lookups
	// that miss the static tables for these types fail as unmapped.
	DynamicDisabled []string `yaml:"dynamic_disabled"`

	// Path the config was loaded from, for diagnostics.
	Path string `yaml:"-"`
}

// ResolvePath returns the config file path, checking TRACKSHIFT_CONFIG
// first and falling back to $PWD/trackshift.yaml.
func ResolvePath() (string, error) {
	if envPath := os.Getenv("TRACKSHIFT_CONFIG"); envPath != "" {
		return envPath, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{
		Redmine: RedmineConfig{
			TextFormat: TextFormatMarkdown,
			PageSize:   100,
		},
		Export: ExportConfig{
			Issues:   true,
			Links:    true,
			Journals: true,
		},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Path = path

	return cfg, nil
}

// Validate checks the configuration for the fatal error class: resource
// mappings with no destination type, unknown text formats, duplicate
// resource/dest pairs. Returns a *ConfigurationError on failure.
func (c *Config) Validate() error {
	switch c.Redmine.TextFormat {
	case TextFormatMarkdown, TextFormatTextile, TextFormatNone:
	default:
		return configErrorf("unknown text_format %q: must be one of markdown, textile, none", c.Redmine.TextFormat)
	}

	seen := make(map[string]bool, len(c.Mappings))
	for _, m := range c.Mappings {
		if m.Resource == "" {
			return configErrorf("mapping with empty resource type")
		}
		if m.Dest == "" {
			return configErrorf("resource type %q has no destination type configured", m.Resource)
		}
		key := m.Resource + "\x00" + m.Dest
		if seen[key] {
			return configErrorf("duplicate mapping for resource %q dest %q", m.Resource, m.Dest)
		}
		seen[key] = true
	}

	for _, f := range c.Fields {
		if f.Source == "" {
			return configErrorf("field mapping with empty source field")
		}
	}

	return nil
}

// DestTypes returns the destination types configured for a resource type,
// in configuration order. A resource type such as a category may carry more
// than one (component and label).
func (c *Config) DestTypes(resource string) []string {
	var dests []string
	for _, m := range c.Mappings {
		if m.Resource == resource {
			dests = append(dests, m.Dest)
		}
	}
	return dests
}

// StaticValue looks up the global static mapping for (resource, dest,
// sourceValue). The second return reports whether a mapping exists.
func (c *Config) StaticValue(resource, dest, sourceValue string) (string, bool) {
	for _, m := range c.Mappings {
		if m.Resource == resource && m.Dest == dest {
			v, ok := m.Values[sourceValue]
			return v, ok
		}
	}
	return "", false
}

// ProjectValue looks up the per-project static mapping for (resource, dest,
// projectKey, sourceValue). Per-project tables take precedence over the
// global table when present.
func (c *Config) ProjectValue(resource, dest, projectKey, sourceValue string) (string, bool) {
	if projectKey == "" {
		return "", false
	}
	for _, m := range c.Mappings {
		if m.Resource == resource && m.Dest == dest {
			table, ok := m.Projects[projectKey]
			if !ok {
				return "", false
			}
			v, ok := table[sourceValue]
			return v, ok
		}
	}
	return "", false
}

// FieldDest returns the destination field for a source field. The second
// return distinguishes "mapped to dest" from "not configured": an absent
// entry means the field is dropped entirely.
func (c *Config) FieldDest(source string) (string, bool) {
	for _, f := range c.Fields {
		if f.Source == source {
			return f.Dest, f.Dest != ""
		}
	}
	return "", false
}

// DynamicEnabled reports whether interactive resolution is allowed for the
// resource type.
func (c *Config) DynamicEnabled(resource string) bool {
	for _, r := range c.DynamicDisabled {
		if r == resource {
			return false
		}
	}
	return true
}
