package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/geobeyond/geodiff-action/pkg/config"
	"github.com/geobeyond/geodiff-action/pkg/engine"
	"github.com/geobeyond/geodiff-action/pkg/engine/geodiffcli"
	"github.com/geobeyond/geodiff-action/pkg/engine/sqlitediff"
	"github.com/geobeyond/geodiff-action/pkg/logging"
)

// loadConfig reads .env, the YAML file named by --config (or the default
// path) and the GEODIFF_* variables, in that order. The resulting color
// preference is kept for PrintError.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg, err := config.Load(globalFlags.ConfigFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	colorOutput = cfg.Output.Color
	return cfg, nil
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("format") {
		cfg.Output.Format = diffFlags.Format
	}

	if flags.Changed("engine") {
		cfg.Engine.Driver = diffFlags.Engine
	}

	if flags.Changed("geodiff-path") {
		cfg.Engine.GeodiffPath = diffFlags.GeodiffPath
	}

	if len(diffFlags.SkipTables) > 0 {
		cfg.Engine.SkipTables = append(cfg.Engine.SkipTables, diffFlags.SkipTables...)
	}

	if flags.Changed("progress") {
		cfg.Output.Progress = diffFlags.Progress
	}

	if diffFlags.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = diffFlags.LogFile
	}

	// Verbose logs everything, quiet logs nothing
	if globalFlags.Verbose {
		cfg.Logging.Enabled = true
		cfg.Logging.Level = "debug"
	}
	if globalFlags.Quiet {
		cfg.Logging.Enabled = false
		cfg.Output.Progress = false
	}

	return cfg.Validate()
}

// newLogger creates a logger based on configuration
func newLogger(cfg *config.Config, stderr io.Writer) (logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NewNullLogger(), nil
	}

	format := logging.FormatText
	if cfg.Logging.Format == "json" {
		format = logging.FormatJSON
	}

	return logging.New(logging.Config{
		Path:       cfg.Logging.File,
		Writer:     stderr,
		Format:     format,
		Level:      logging.ParseLevel(cfg.Logging.Level),
		MaxSize:    10 * 1024 * 1024, // 10 MB
		MaxBackups: 5,
	})
}

// newEngine creates the configured changeset engine. The returned function
// stops progress reporting and must be called once the comparison ends.
func newEngine(cfg *config.Config, logger logging.Logger, stderr io.Writer) (engine.Engine, func()) {
	switch cfg.Engine.Driver {
	case config.DriverGeodiff:
		return geodiffcli.New(cfg.Engine.GeodiffPath, logger), func() {}

	default:
		eng := sqlitediff.New(logger)
		eng.SetSkipTables(cfg.Engine.SkipTables)

		if !cfg.Output.Progress || !isTerminal(stderr) {
			return eng, func() {}
		}

		progress := newTableProgress(stderr)
		eng.SetProgressCallback(progress.Update)
		return eng, progress.Finish
	}
}
