package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables overriding file settings
const (
	EnvEngine      = "GEODIFF_ENGINE"
	EnvGeodiffPath = "GEODIFF_GEODIFF_PATH"
	EnvFormat      = "GEODIFF_FORMAT"
	EnvLogLevel    = "GEODIFF_LOG_LEVEL"
)

// LoadDotEnv reads variables from the given .env files (".env" when none).
// Missing files are ignored and variables already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overrides settings from environment variables.
// A nil lookup reads the process environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	set := func(key string, dst *string, lower bool) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if lower {
			v = strings.ToLower(v)
		}
		*dst = v
	}

	set(EnvEngine, &c.Engine.Driver, true)
	set(EnvGeodiffPath, &c.Engine.GeodiffPath, false)
	set(EnvFormat, &c.Output.Format, true)
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		set(EnvLogLevel, &c.Logging.Level, true)
		c.Logging.Enabled = true
	}

	return c.Validate()
}
