// Package config provides configuration file parsing for pipsnap.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable settings. Every field has a sensible default;
// the config file only needs to mention what it overrides.
type Config struct {
	// Concurrency bounds in-flight index lookups during resolution.
	Concurrency int `yaml:"concurrency"`
	// BackupDir is where snapshot files live.
	BackupDir string `yaml:"backup_dir"`
	// IndexURL points at a PyPI-compatible JSON API.
	IndexURL string `yaml:"index_url"`
	// TimeoutSeconds bounds a single index lookup.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// Python is the interpreter used to invoke pip.
	Python string `yaml:"python"`
}

// Dir returns the pipsnap config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/pipsnap if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "pipsnap"), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Concurrency:    10,
		TimeoutSeconds: 15,
		Python:         "python3",
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.BackupDir = filepath.Join(home, ".pipsnap", "backups")
	} else {
		cfg.BackupDir = "package_backups"
	}
	return cfg
}

// Load reads {dir}/config.yaml, layering it over the defaults. A missing
// file is not an error; a malformed one is.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if overlay.Concurrency > 0 {
		cfg.Concurrency = overlay.Concurrency
	}
	if overlay.BackupDir != "" {
		cfg.BackupDir = overlay.BackupDir
	}
	if overlay.IndexURL != "" {
		cfg.IndexURL = overlay.IndexURL
	}
	if overlay.TimeoutSeconds > 0 {
		cfg.TimeoutSeconds = overlay.TimeoutSeconds
	}
	if overlay.Python != "" {
		cfg.Python = overlay.Python
	}

	return cfg, nil
}

// Timeout returns TimeoutSeconds as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
