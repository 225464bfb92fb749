package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the geodiff command tree: diff, config and version.
// Package-level option state is reset so every tree starts from defaults.
func NewRootCommand() *cobra.Command {
	colorOutput = true

	rootCmd := &cobra.Command{
		Use:   "geodiff",
		Short: "Row-level change reports for GeoPackage and SQLite files",
		Long: `geodiff compares two versions of a GeoPackage or SQLite file and reports
which rows were inserted, updated or deleted in each table, as JSON for
automation or as a short human-readable summary.

Exit status is 0 on success and 1 on error. With diff --fail-on-changes
it is 2 when the files differ.`,
		Example: `  geodiff diff base.gpkg modified.gpkg
  geodiff diff base.gpkg modified.gpkg -f summary --fail-on-changes
  geodiff --config ci.yaml diff base.gpkg modified.gpkg -o report.json -q`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(
		NewDiffCommand(),
		NewConfigCommand(),
		NewVersionCommand(),
	)

	return rootCmd
}
