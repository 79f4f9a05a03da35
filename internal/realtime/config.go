package realtime

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// WatchPath is the websocket endpoint.
const WatchPath = "/v1/watch"

// Config configures the realtime gateway and the HTTP server it runs on.
type Config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	SendBufferSize  int           `yaml:"send_buffer_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Metrics         bool          `yaml:"metrics"` // serve /metrics on the same listener
}

// DefaultConfig returns safe defaults for development.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            8080,
		SendBufferSize:  256,
		ShutdownTimeout: 10 * time.Second,
		Metrics:         true,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Host == "" {
		c.Host = defaults.Host
	}
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.SendBufferSize == 0 {
		c.SendBufferSize = defaults.SendBufferSize
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("STORENOTIFY_HOST"); val != "" {
		c.Host = val
	}
	if val := os.Getenv("STORENOTIFY_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Port = port
		}
	}
}

// ResolvePaths resolves relative paths using the given directories.
// No paths to resolve in gateway config.
func (c *Config) ResolvePaths(_, _ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("gateway.port out of range: %d", c.Port)
	}
	if c.SendBufferSize < 1 {
		return fmt.Errorf("gateway.send_buffer_size must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
