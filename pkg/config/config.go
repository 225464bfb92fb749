package config

import (
	"github.com/geobeyond/geodiff-action/pkg/models"
)

// Engine drivers
const (
	DriverSQLite  = "sqlite"
	DriverGeodiff = "geodiff"
)

// Config represents the application configuration
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig selects and tunes the changeset engine
type EngineConfig struct {
	Driver      string   `yaml:"driver"`       // "sqlite" or "geodiff"
	GeodiffPath string   `yaml:"geodiff_path"` // geodiff binary for the geodiff driver
	SkipTables  []string `yaml:"skip_tables"`  // extra tables ignored by the sqlite driver
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "json" or "summary"
	Color    bool   `yaml:"color"`    // Colorize errors on a terminal
	Progress bool   `yaml:"progress"` // Show a per-table progress bar
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // "json" or "text"
	Level   string `yaml:"level"`  // "debug", "info", "warn", "error"
	File    string `yaml:"file"`   // Log file path (empty = stderr)
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Driver:      DriverSQLite,
			GeodiffPath: "geodiff",
			SkipTables:  []string{},
		},
		Output: OutputConfig{
			Format:   "json",
			Color:    true,
			Progress: false,
		},
		Logging: LoggingConfig{
			Enabled: false,
			Format:  "text",
			Level:   "info",
			File:    "",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validDrivers := map[string]bool{DriverSQLite: true, DriverGeodiff: true}
	if !validDrivers[c.Engine.Driver] {
		return &models.ValidationError{
			Field:   "engine.driver",
			Message: "must be 'sqlite' or 'geodiff'",
		}
	}

	if c.Engine.Driver == DriverGeodiff && c.Engine.GeodiffPath == "" {
		return &models.ValidationError{
			Field:   "engine.geodiff_path",
			Message: "must be set for the geodiff driver",
		}
	}

	validFormats := map[string]bool{"json": true, "summary": true, "structured": true, "text": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'json' or 'summary'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}
