// Package config loads the application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/syntrixbase/storenotify/internal/realtime"
	"github.com/syntrixbase/storenotify/internal/relay"
)

// Config holds the application configuration
type Config struct {
	// DataDir is the base directory for runtime data such as logs. Relative
	// values resolve against the parent of the config directory.
	DataDir string `yaml:"data_dir"`

	Store   StoreConfig     `yaml:"store"`
	Relay   relay.Config    `yaml:"relay"`
	Gateway realtime.Config `yaml:"gateway"`
	Logging LoggingConfig   `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no files are present.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".",
		Store:   DefaultStoreConfig(),
		Relay:   relay.DefaultConfig(),
		Gateway: realtime.DefaultConfig(),
		Logging: DefaultLoggingConfig(),
	}
}

// LoadConfig loads configuration from files in configDir and environment
// variables.
// Order: defaults -> config.yml -> config.local.yml -> ApplyDefaults -> ApplyEnvOverrides -> ResolvePaths -> Validate
func LoadConfig(configDir string) (*Config, error) {
	// 1. Start with default values (so YAML can override them, including bool fields)
	cfg := DefaultConfig()

	// 2. Load config.yml (overrides defaults)
	if err := loadFile(filepath.Join(configDir, "config.yml"), cfg); err != nil {
		return nil, err
	}

	// 3. Load config.local.yml (overrides config.yml)
	if err := loadFile(filepath.Join(configDir, "config.local.yml"), cfg); err != nil {
		return nil, err
	}

	// 4. Apply the configuration lifecycle to every section
	dataDir := cfg.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(filepath.Dir(filepath.Clean(configDir)), dataDir)
	}
	if err := ApplyServiceConfigs(configDir, filepath.Clean(dataDir),
		Section{"store", &cfg.Store},
		Section{"relay", &cfg.Relay},
		Section{"gateway", &cfg.Gateway},
		Section{"logging", &cfg.Logging},
	); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return cfg, nil
}

// loadFile merges filename into cfg. A missing file is skipped.
func loadFile(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		slog.Warn("Error reading config file", "file", filename, "error", err)
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	return nil
}
