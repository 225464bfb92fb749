package main

import (
	"os"

	"github.com/geobeyond/geodiff-action/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.Version, cli.Commit, cli.BuildDate = version, commit, date

	rootCmd := cli.NewRootCommand()
	err := rootCmd.Execute()

	cli.PrintError(os.Stderr, err, cli.ColorEnabled())
	return cli.ExitCode(err)
}
