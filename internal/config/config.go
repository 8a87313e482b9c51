// Package config loads and validates the optional .fluvio-command YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/githubsands/fluvio-command/internal/classify"
)

// FileName is the name of the configuration file, looked up from the
// working directory upward.
const FileName = ".fluvio-command"

// Default values for runner configuration.
const (
	DefaultTimeout   = 5 * time.Minute
	DefaultMaxOutput = 1 << 20 // 1 MB
)

// Config holds the parsed .fluvio-command configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int          `yaml:"version"`
	RawTimeout   string       `yaml:"timeout"`    // e.g. "5m", "30s"; applied by the CLI, not the core
	RawMaxOutput int          `yaml:"max_output"` // bytes per captured stream
	Detect       []DetectRule `yaml:"detect"`     // stderr signature rules, checked in order
	Batch        BatchConfig  `yaml:"batch"`
}

// DetectRule maps a stderr substring to a failure kind.
type DetectRule struct {
	Contains string `yaml:"contains"`
	Kind     string `yaml:"kind"`
}

// BatchConfig defines the command sequence for the batch subcommand.
type BatchConfig struct {
	KeepGoing bool            `yaml:"keep_going"` // run remaining commands after a failure
	Commands  []CommandConfig `yaml:"commands"`
}

// CommandConfig is one named invocation in a batch.
type CommandConfig struct {
	Name    string   `yaml:"name"`
	Argv    []string `yaml:"argv"`
	Dir     string   `yaml:"dir"`
	Inherit bool     `yaml:"inherit"`
}

// Timeout returns the configured timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// DetectorRules returns the configured stderr signature rules, falling
// back to the built-in connectivity rule when none are configured.
func (c *Config) DetectorRules() []classify.Rule {
	if len(c.Detect) == 0 {
		return classify.DefaultDetector().Rules
	}
	rules := make([]classify.Rule, 0, len(c.Detect))
	for _, r := range c.Detect {
		rules = append(rules, classify.Rule{Contains: r.Contains, Kind: classify.Kind(r.Kind)})
	}
	return rules
}

// Validate checks the configuration for values that cannot be used.
func (c *Config) Validate() error {
	for i, r := range c.Detect {
		if r.Contains == "" {
			return fmt.Errorf("detect[%d]: contains must not be empty", i)
		}
		if !classify.KnownKind(classify.Kind(r.Kind)) {
			return fmt.Errorf("detect[%d]: unknown kind %q", i, r.Kind)
		}
	}
	for i, cmd := range c.Batch.Commands {
		if len(cmd.Argv) == 0 {
			return fmt.Errorf("batch.commands[%d]: argv must not be empty", i)
		}
		if cmd.Name == "" {
			return fmt.Errorf("batch.commands[%d]: name must not be empty", i)
		}
	}
	return nil
}

// LoadResult holds the parsed config and the directory it was found in.
type LoadResult struct {
	Config *Config
	Root   string // directory containing the config file; falls back to workspace
}

// Load reads the .fluvio-command file, searching from workspace upward.
// If no file exists anywhere up the tree, a default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findRoot(workspace)
	if err != nil {
		// No config file found; use workspace with defaults.
		return &LoadResult{Config: &Config{}, Root: workspace}, nil
	}

	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &LoadResult{Config: cfg, Root: root}, nil
}

// findRoot walks upward from dir looking for a directory containing the
// config file.
func findRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
