package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geobeyond/geodiff-action/pkg/changeset"
	"github.com/geobeyond/geodiff-action/pkg/diff"
	"github.com/geobeyond/geodiff-action/pkg/output"
)

// DiffFlags holds diff command flags
type DiffFlags struct {
	Format        string
	OutputFile    string
	Engine        string
	GeodiffPath   string
	SkipTables    []string
	FailOnChanges bool
	Progress      bool
	TempDir       string
	LogFile       string
}

var diffFlags DiffFlags

// NewDiffCommand creates the diff command
func NewDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff BASE COMPARE",
		Short: "Compare two GeoPackage or SQLite files",
		Long: `Compare a base file with a compare file and report every inserted,
updated and deleted row, grouped by table.

Supported formats: .gpkg, .sqlite, .db`,
		Example: `  geodiff diff base.gpkg modified.gpkg
  geodiff diff base.gpkg modified.gpkg --format summary
  geodiff diff base.gpkg modified.gpkg --output-file diff.json --fail-on-changes`,
		Args: cobra.ExactArgs(2),
		RunE: runDiff,
	}

	cmd.Flags().StringVarP(&diffFlags.Format, "format", "f", "json",
		"output format: json (or structured), summary (or text); any other value is rejected")
	cmd.Flags().StringVarP(&diffFlags.OutputFile, "output-file", "o", "", "also write the result to a file")
	cmd.Flags().StringVarP(&diffFlags.Engine, "engine", "e", "sqlite", "changeset engine: sqlite, geodiff")
	cmd.Flags().StringVar(&diffFlags.GeodiffPath, "geodiff-path", "geodiff", "geodiff binary used by the geodiff engine")
	cmd.Flags().StringSliceVar(&diffFlags.SkipTables, "skip-table", []string{}, "tables to ignore (sqlite engine)")
	cmd.Flags().BoolVar(&diffFlags.FailOnChanges, "fail-on-changes", false, "exit with code 2 when the files differ")
	cmd.Flags().BoolVar(&diffFlags.Progress, "progress", false, "show per-table progress on a terminal")
	cmd.Flags().StringVar(&diffFlags.TempDir, "temp-dir", "", "parent directory for changeset workspaces (default: system temp)")
	cmd.Flags().StringVar(&diffFlags.LogFile, "log-file", "", "write logs to file (enables logging)")

	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	if err := applyFlagsToConfig(cmd, cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	// Create logger
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	eng, stopProgress := newEngine(cfg, logger, cmd.ErrOrStderr())

	adapter := changeset.NewAdapter(eng, logger)
	adapter.SetTempDir(diffFlags.TempDir)

	summary, err := diff.NewService(adapter, logger).Summarize(ctx, args[0], args[1])
	stopProgress()
	if err != nil {
		return err
	}

	content, err := output.Format(summary, cfg.Output.Format)
	if err != nil {
		return err
	}

	if diffFlags.OutputFile != "" {
		if err := output.WriteReport(summary, diffFlags.OutputFile, cfg.Output.Format); err != nil {
			return err
		}
	}

	if !globalFlags.Quiet {
		fmt.Fprintln(cmd.OutOrStdout(), content)
	}

	if diffFlags.FailOnChanges && summary.HasChanges {
		return ErrChangesDetected
	}

	return nil
}
