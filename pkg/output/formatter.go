package output

import (
	"strings"

	"github.com/geobeyond/geodiff-action/pkg/models"
)

// Mode selects an output representation
type Mode string

const (
	// ModeJSON is the structured, machine-readable document
	ModeJSON Mode = "json"
	// ModeSummary is the fixed-layout human-readable report
	ModeSummary Mode = "summary"
)

// ParseMode maps a mode name to a Mode.
// "structured" and "text" are accepted as aliases; anything else is JSON.
func ParseMode(name string) Mode {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "summary", "text":
		return ModeSummary
	default:
		return ModeJSON
	}
}

// Formatter renders a diff summary
type Formatter interface {
	// Format renders the summary as a string
	Format(summary *models.DiffSummary) (string, error)

	// Name returns the formatter name
	Name() string
}

// NewFormatter returns the formatter for a mode name
func NewFormatter(mode string) Formatter {
	if ParseMode(mode) == ModeSummary {
		return NewHumanFormatter()
	}
	return NewJSONFormatter()
}

// Format renders summary in the given mode
func Format(summary *models.DiffSummary, mode string) (string, error) {
	return NewFormatter(mode).Format(summary)
}
