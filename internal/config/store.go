package config

import (
	"fmt"
	"os"
	"time"

	"github.com/syntrixbase/storenotify/internal/store/mongo"
)

// Backend types.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// StoreConfig configures the object store context.
type StoreConfig struct {
	Name         string        `yaml:"name"`
	Backend      string        `yaml:"backend"` // memory, mongo
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Metrics      bool          `yaml:"metrics"`
	Mongo        mongo.Config  `yaml:"mongo"`
}

// DefaultStoreConfig returns an in-memory store.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Name:         "default",
		Backend:      BackendMemory,
		FetchTimeout: 30 * time.Second,
		Metrics:      true,
		Mongo:        mongo.DefaultConfig(),
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *StoreConfig) ApplyDefaults() {
	defaults := DefaultStoreConfig()
	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.Backend == "" {
		c.Backend = defaults.Backend
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = defaults.FetchTimeout
	}
	c.Mongo.ApplyDefaults()
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *StoreConfig) ApplyEnvOverrides() {
	if val := os.Getenv("STORENOTIFY_STORE_BACKEND"); val != "" {
		c.Backend = val
	}
	c.Mongo.ApplyEnvOverrides()
}

// ResolvePaths resolves relative paths using the given directories.
// No paths to resolve in store config.
func (c *StoreConfig) ResolvePaths(_, _ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *StoreConfig) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendMongo:
		if err := c.Mongo.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be memory or mongo)", c.Backend)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("store.fetch_timeout must not be negative")
	}
	return nil
}
