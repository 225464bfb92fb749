package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags are the options shared by every geodiff subcommand
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	NoColor    bool
}

var globalFlags GlobalFlags

// AddGlobalFlags registers the shared options on the root command
func AddGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVar(&globalFlags.ConfigFile, "config", "",
		"YAML settings for engine, output and logging (default $HOME/.config/geodiff/config.yaml)")
	flags.BoolVarP(&globalFlags.Verbose, "verbose", "v", false,
		"log engine and changeset details to stderr")
	flags.BoolVarP(&globalFlags.Quiet, "quiet", "q", false,
		"print no report on stdout (use with --output-file or --fail-on-changes)")
	flags.BoolVar(&globalFlags.NoColor, "no-color", false,
		"never color the error prefix, even on a terminal")
}

// GetGlobalFlags returns the parsed shared options
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}
