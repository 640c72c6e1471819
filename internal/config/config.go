// Package config loads the optional YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"evmtrace/internal/analysis"
	"evmtrace/internal/contract"
	"evmtrace/internal/detectors"
)

// Config holds the settings a run can take from a file. Command-line flags
// override anything set here.
type Config struct {
	Debug       bool                `yaml:"debug" json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	MaxSteps    int                 `yaml:"max_steps" json:"max_steps" jsonschema:"title=Max Steps,minimum=1,description=Step ceiling of the block tracer"`
	Workers     int                 `yaml:"workers" json:"workers" jsonschema:"title=Workers,minimum=0,description=Concurrent function traces; 0 uses every CPU"`
	ContextSize int                 `yaml:"context_size" json:"context_size" jsonschema:"title=Context Size,minimum=0,description=Instructions shown around each match"`
	Targets     []string            `yaml:"targets,omitempty" json:"targets,omitempty" jsonschema:"title=Targets,description=Selectors or signatures to search"`
	Patterns    []detectors.Pattern `yaml:"patterns,omitempty" json:"patterns,omitempty" jsonschema:"title=Patterns,description=Additional patterns; names shadow built-ins"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		MaxSteps:    analysis.MaxTraceSteps,
		ContextSize: analysis.DefaultContextSize,
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges, selectors and patterns, and canonicalizes targets.
func (c *Config) Validate() error {
	if c.MaxSteps < 1 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.ContextSize < 0 {
		return fmt.Errorf("context_size must not be negative, got %d", c.ContextSize)
	}

	for i, t := range c.Targets {
		sel, err := contract.NormalizeSelector(t)
		if err != nil {
			return fmt.Errorf("targets[%d]: %w", i, err)
		}
		c.Targets[i] = sel
	}

	for i := range c.Patterns {
		if _, err := c.Patterns[i].Validate(); err != nil {
			return fmt.Errorf("patterns[%d]: %w", i, err)
		}
		for j, t := range c.Patterns[i].Targets {
			sel, err := contract.NormalizeSelector(t)
			if err != nil {
				return fmt.Errorf("patterns[%d].targets[%d]: %w", i, j, err)
			}
			c.Patterns[i].Targets[j] = sel
		}
	}
	return nil
}

// Pattern resolves name against the file's patterns, then the built-ins.
func (c Config) Pattern(name string) (detectors.Pattern, bool) {
	return detectors.Lookup(name, c.Patterns...)
}
