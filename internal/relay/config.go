package relay

import (
	"fmt"
	"os"
	"time"

	"github.com/syntrixbase/storenotify/internal/core/pubsub"
)

// Provider names.
const (
	ProviderNone   = "none"
	ProviderMemory = "memory"
	ProviderNATS   = "nats"
)

// Config configures the save relay.
type Config struct {
	Provider      string        `yaml:"provider"` // none, memory, nats
	URL           string        `yaml:"url"`      // nats only
	StreamName    string        `yaml:"stream_name"`
	StreamStorage string        `yaml:"stream_storage"` // memory, file; streams only
	SubjectPrefix string        `yaml:"subject_prefix"`
	Timeout       time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the relay defaults: relaying disabled.
func DefaultConfig() Config {
	return Config{
		Provider:      ProviderNone,
		URL:           "nats://localhost:4222",
		SubjectPrefix: "storenotify",
		Timeout:       2 * time.Second,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Provider == "" {
		c.Provider = defaults.Provider
	}
	if c.URL == "" {
		c.URL = defaults.URL
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = defaults.SubjectPrefix
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("STORENOTIFY_RELAY_PROVIDER"); val != "" {
		c.Provider = val
	}
	if val := os.Getenv("NATS_URL"); val != "" {
		c.URL = val
	}
}

// ResolvePaths is a no-op; the relay has no path settings.
func (c *Config) ResolvePaths(_, _ string) {}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderNone, ProviderMemory:
	case ProviderNATS:
		if c.URL == "" {
			return fmt.Errorf("relay.url is required for the nats provider")
		}
	default:
		return fmt.Errorf("invalid relay provider: %s (must be none, memory, or nats)", c.Provider)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("relay.timeout must not be negative")
	}
	if _, err := pubsub.ParseStorage(c.StreamStorage); err != nil {
		return fmt.Errorf("relay.stream_storage: %w", err)
	}
	return nil
}

// Enabled reports whether saves are relayed at all.
func (c *Config) Enabled() bool {
	return c.Provider != ProviderNone
}
