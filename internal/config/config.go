// Package config handles configuration loading for a program that embeds
// husky. The reactive engine itself (husky, husky/ops, husky/material)
// takes no configuration beyond constructor arguments and does not import
// this package.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order. An explicit path
// (from an embedder's own flag handling) is checked first. Then:
// ./husky.yaml, ~/.config/husky/husky.yaml, /etc/husky/husky.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"husky.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "husky", "husky.yaml"))
	}

	paths = append(paths, "/etc/husky/husky.yaml")
	return paths
}

// searchPathsFunc is a seam for tests; production code always uses
// DefaultSearchPaths.
var searchPathsFunc = DefaultSearchPaths

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise, searches searchPathsFunc() and returns the first path
// that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	paths := searchPathsFunc()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", paths)
}

// Config holds the settings of an embedding server or demo process.
type Config struct {
	// DataDir is where the database directory is created.
	DataDir string `yaml:"data_dir"`
	// Codec selects the value encoding strategy: "portable" (big-endian,
	// byte-order stable) or "archival" (gob-based, optional validation).
	Codec string `yaml:"codec"`
	// ValidateOnRead enables the archival codec's checksum validation.
	ValidateOnRead bool `yaml:"validate_on_read"`
	// BusCapacity overrides the default per-stage event bus ring size.
	BusCapacity int `yaml:"bus_capacity"`
	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from a YAML file, applies defaults for any
// unset fields, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults. Called
// automatically by Load.
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Codec == "" {
		c.Codec = "portable"
	}
	if c.BusCapacity == 0 {
		c.BusCapacity = 128
	}
}

// Validate checks that the configuration is internally consistent. It runs
// after applyDefaults, so it can assume defaults are populated.
func (c *Config) Validate() error {
	switch c.Codec {
	case "portable", "archival":
	default:
		return fmt.Errorf("codec %q unsupported (want portable or archival)", c.Codec)
	}
	if c.BusCapacity < 1 {
		return fmt.Errorf("bus_capacity %d must be positive", c.BusCapacity)
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a default configuration suitable for local development.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
