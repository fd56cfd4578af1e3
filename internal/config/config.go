// Package config loads phaseguard settings from defaults, an optional
// project file and PHASEGUARD_* environment variables.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/phaseguard/internal/log"
	"github.com/felixgeelhaar/phaseguard/internal/phase"
	"github.com/felixgeelhaar/phaseguard/internal/ux"
	"github.com/felixgeelhaar/phaseguard/internal/validate"
)

// Config is the merged configuration. Command line flags are applied on
// top of it by the caller.
type Config struct {
	StateDir string `koanf:"state_dir"`
	Strict   bool   `koanf:"strict"`
	Format   string `koanf:"format"`
	Color    bool   `koanf:"color"`

	Log   LogConfig   `koanf:"log"`
	Rules RulesConfig `koanf:"rules"`

	// Source is the config file that was loaded, if any
	Source string `koanf:"-"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// RulesConfig adjusts the ordering tables. Type names are matched
// case-insensitively ("business-logic" == "Business Logic").
type RulesConfig struct {
	EarlyThreshold int `koanf:"early_threshold"`

	// Canonical overrides the advisory position of a type
	Canonical map[string]int `koanf:"canonical"`

	// HardDependencies replaces the required types of a type; "all"
	// matches any phase
	HardDependencies map[string][]string `koanf:"hard_dependencies"`

	// Keywords adds name keywords for a type, tried before the built-in rules.
	// A keyword matches a whole word; a trailing "*" matches any word with
	// that prefix.
	Keywords map[string][]string `koanf:"keywords"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() Config {
	return Config{
		StateDir: ux.DefaultStateDir,
		Format:   string(ux.FormatMarkdown),
		Color:    true,
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Rules: RulesConfig{
			EarlyThreshold: validate.DefaultTables().EarlyThreshold,
		},
	}
}

// Validate checks every value that has a closed set of options
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StateDir) == "" {
		return fmt.Errorf("state_dir must not be empty")
	}
	if _, err := ux.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("format: %w", err)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Rules.EarlyThreshold < 1 {
		return fmt.Errorf("rules.early_threshold must be at least 1, got %d", c.Rules.EarlyThreshold)
	}
	_, err := c.Tables()
	return err
}

// ReportFormat returns the parsed report format
func (c *Config) ReportFormat() ux.Format {
	f, err := ux.ParseFormat(c.Format)
	if err != nil {
		return ux.FormatMarkdown
	}
	return f
}

// LoggerConfig converts the log section for log.New
func (c *Config) LoggerConfig() log.Config {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(c.Log.Level)
	lc.Format = log.ParseFormat(c.Log.Format)
	lc.File = c.Log.File
	return lc
}

// Tables builds the ordering tables with the rules section applied
func (c *Config) Tables() (validate.Tables, error) {
	t := validate.DefaultTables()
	t.EarlyThreshold = c.Rules.EarlyThreshold

	for _, name := range sortedKeys(c.Rules.Canonical) {
		typ, err := parseType(name, false)
		if err != nil {
			return t, fmt.Errorf("rules.canonical: %w", err)
		}
		pos := c.Rules.Canonical[name]
		if pos < 1 {
			return t, fmt.Errorf("rules.canonical.%s must be at least 1, got %d", name, pos)
		}
		t.Canonical[typ] = pos
	}

	for _, name := range sortedKeys(c.Rules.HardDependencies) {
		typ, err := parseType(name, false)
		if err != nil {
			return t, fmt.Errorf("rules.hard_dependencies: %w", err)
		}
		required := make([]phase.Type, 0, len(c.Rules.HardDependencies[name]))
		for _, dep := range c.Rules.HardDependencies[name] {
			dt, err := parseType(dep, true)
			if err != nil {
				return t, fmt.Errorf("rules.hard_dependencies.%s: %w", name, err)
			}
			if dt == typ {
				return t, fmt.Errorf("rules.hard_dependencies.%s: a type cannot require itself", name)
			}
			required = append(required, dt)
		}
		t.HardDependencies[typ] = required
	}

	var extra []phase.KeywordRule
	for _, name := range sortedKeys(c.Rules.Keywords) {
		typ, err := parseType(name, false)
		if err != nil {
			return t, fmt.Errorf("rules.keywords: %w", err)
		}
		extra = append(extra, phase.KeywordRule{Type: typ, Keywords: c.Rules.Keywords[name]})
	}
	t.Keywords = append(extra, t.Keywords...)

	return t, nil
}

func parseType(name string, allowAll bool) (phase.Type, error) {
	if allowAll && strings.EqualFold(strings.TrimSpace(name), string(phase.TypeAll)) {
		return phase.TypeAll, nil
	}
	t, ok := phase.ParseType(name)
	if !ok {
		return phase.TypeNone, fmt.Errorf("unknown phase type %q", name)
	}
	return t, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
