package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v2"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// Lines is the number of trailing lines printed before following.
	Lines int `json:"lines" yaml:"lines"`
	// Max bounds how many lines the in-memory buffer retains.
	Max int `json:"max" yaml:"max"`
	// Follow keeps streaming appended lines after the initial output.
	Follow bool `json:"follow" yaml:"follow"`
	// Highlight enables ANSI match highlighting on terminal output.
	Highlight bool `json:"highlight" yaml:"highlight"`
	// DataDir is where the session archive lives. Empty means the
	// OS-specific application data directory.
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// ArchiveMax bounds how many lines an archived session keeps; older
	// entries are trimmed when a capture finishes. 0 means unlimited.
	ArchiveMax int `json:"archiveMax" yaml:"archiveMax"`
	// Filters are named line filters selectable with --match.
	Filters []Filter `json:"filters" yaml:"filters"`
	// Log controls process logging.
	Log LogConfig `json:"log" yaml:"log"`
}

// Filter is a named regular expression applied to tailed lines.
type Filter struct {
	Name string `json:"name" yaml:"name"`
	Rule string `json:"rule" yaml:"rule"`
}

// LogConfig declares log level and format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Built-in defaults for the CLI surface.
const (
	DefaultLines = 10
	DefaultMax   = 3000
)

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Lines:     DefaultLines,
		Max:       DefaultMax,
		Highlight: true,
	}
}

// Load reads configuration from a YAML or JSON file (by extension). If path is
// empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		// .yml, .yaml, and anything else is treated as YAML.
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the tail pipeline cannot honor.
func (c Config) Validate() error {
	if c.Lines < 0 {
		return fmt.Errorf("lines must be >= 0, got %d", c.Lines)
	}
	if c.Max <= 0 {
		return fmt.Errorf("max must be > 0, got %d", c.Max)
	}
	if c.ArchiveMax < 0 {
		return fmt.Errorf("archiveMax must be >= 0, got %d", c.ArchiveMax)
	}
	seen := map[string]bool{}
	for _, f := range c.Filters {
		if f.Name == "" {
			return fmt.Errorf("filter with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate filter name %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// FilterRule returns the rule for the named filter.
func (c Config) FilterRule(name string) (string, bool) {
	for _, f := range c.Filters {
		if f.Name == name {
			return f.Rule, true
		}
	}
	return "", false
}
