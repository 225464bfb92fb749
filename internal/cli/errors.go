package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Exit codes
const (
	ExitOK      = 0
	ExitError   = 1
	ExitChanges = 2
)

// ErrChangesDetected is returned by diff --fail-on-changes when the files differ
var ErrChangesDetected = errors.New("changes detected")

// ExitCode maps a command error to a process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrChangesDetected):
		return ExitChanges
	default:
		return ExitError
	}
}

// PrintError writes err to w, in red when w is a terminal and colors are wanted.
// ErrChangesDetected is a result rather than a failure and is not printed.
func PrintError(w io.Writer, err error, colored bool) {
	if err == nil || errors.Is(err, ErrChangesDetected) {
		return
	}

	prefix := color.New(color.FgRed, color.Bold)
	if !colored || !isTerminal(w) {
		prefix.DisableColor()
	} else {
		prefix.EnableColor()
	}

	fmt.Fprintf(w, "%s %v\n", prefix.Sprint("Error:"), err)
}

// colorOutput is output.color from the configuration the last command
// loaded; commands that never load one keep the default
var colorOutput = true

// ColorEnabled reports whether error output may be colored: NO_COLOR is
// unset, --no-color was not given and output.color is on. It never reads
// the configuration again.
func ColorEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return !globalFlags.NoColor && colorOutput
}
