package mongo

import (
	"fmt"
	"os"
)

// Config configures the MongoDB backend.
type Config struct {
	URI          string `yaml:"uri"`
	DatabaseName string `yaml:"database_name"`
	Collection   string `yaml:"collection"`
	// Transactions wraps each commit in a multi-document transaction. It
	// requires a replica set; without it a failed commit may be partially
	// applied.
	Transactions bool `yaml:"transactions"`
}

// DefaultConfig returns the backend defaults.
func DefaultConfig() Config {
	return Config{
		URI:          "mongodb://localhost:27017",
		DatabaseName: "storenotify",
		Collection:   "objects",
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.URI == "" {
		c.URI = defaults.URI
	}
	if c.DatabaseName == "" {
		c.DatabaseName = defaults.DatabaseName
	}
	if c.Collection == "" {
		c.Collection = defaults.Collection
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("MONGO_URI"); val != "" {
		c.URI = val
	}
	if val := os.Getenv("MONGO_DATABASE"); val != "" {
		c.DatabaseName = val
	}
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	if c.DatabaseName == "" {
		return fmt.Errorf("mongo.database_name is required")
	}
	if c.Collection == "" {
		return fmt.Errorf("mongo.collection is required")
	}
	return nil
}
