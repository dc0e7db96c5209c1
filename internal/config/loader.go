package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*TrackerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML config bytes after expanding environment variables.
func Parse(data []byte) (*TrackerConfig, error) {
	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg TrackerConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// Default returns a config with every default applied.
func Default() *TrackerConfig {
	cfg := &TrackerConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*TrackerConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*TrackerConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
