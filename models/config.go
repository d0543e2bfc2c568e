// Package models defines data structures shared by the download pipeline.
package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Related-link acceptance policies.
const (
	RelatedAsk  = "ask"
	RelatedAll  = "all"
	RelatedNone = "none"
)

// Config holds runtime configuration for pipeline runs. Values come from CLI
// flags, optionally seeded from a YAML config file.
type Config struct {
	OutputDir      string `yaml:"output_dir"`
	Workers        int    `yaml:"workers"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Bypass         bool   `yaml:"bypass"`
	Related        string `yaml:"related"` // ask, all, none
}

// DefaultConfig returns the built-in defaults used when no config file or
// flag overrides are present.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:      ".",
		Workers:        8,
		TimeoutSeconds: 30,
		Related:        RelatedAsk,
	}
}

// LoadConfig reads a YAML config file and merges it over the defaults.
// A missing file is not an error; the defaults are returned as-is.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = DefaultConfig().TimeoutSeconds
	}
	if config.OutputDir == "" {
		config.OutputDir = "."
	}
	switch config.Related {
	case RelatedAsk, RelatedAll, RelatedNone:
	default:
		config.Related = RelatedAsk
	}

	return config, nil
}

// Timeout returns the per-request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
