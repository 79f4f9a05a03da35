package config

import (
	"fmt"

	"github.com/syntrixbase/storenotify/internal/realtime"
	"github.com/syntrixbase/storenotify/internal/relay"
)

// ServiceConfig is the lifecycle every section of Config goes through after
// the YAML files are merged.
type ServiceConfig interface {
	ApplyDefaults()
	ApplyEnvOverrides()
	// ResolvePaths makes relative paths absolute: config paths against
	// configDir, runtime data such as logs against dataDir.
	ResolvePaths(configDir, dataDir string)
	Validate() error
}

var (
	_ ServiceConfig = (*StoreConfig)(nil)
	_ ServiceConfig = (*relay.Config)(nil)
	_ ServiceConfig = (*realtime.Config)(nil)
	_ ServiceConfig = (*LoggingConfig)(nil)
)

// Section names a ServiceConfig for error messages.
type Section struct {
	Name   string
	Config ServiceConfig
}

// ApplyServiceConfigs runs the lifecycle on each section in order and stops
// at the first section that fails validation.
func ApplyServiceConfigs(configDir, dataDir string, sections ...Section) error {
	for _, s := range sections {
		s.Config.ApplyDefaults()
		s.Config.ApplyEnvOverrides()
		s.Config.ResolvePaths(configDir, dataDir)
		if err := s.Config.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}
