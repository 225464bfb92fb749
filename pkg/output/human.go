package output

import (
	"fmt"
	"strings"

	"github.com/geobeyond/geodiff-action/pkg/models"
)

// HumanFormatter renders a fixed-layout text report
type HumanFormatter struct{}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Format renders the report; the table section appears only when
// at least one table changed
func (f *HumanFormatter) Format(summary *models.DiffSummary) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "GeoDiff Summary: %s vs %s\n", summary.BaseFile, summary.CompareFile)
	fmt.Fprintf(&b, "  Has Changes:   %s\n", yesNo(summary.HasChanges))
	fmt.Fprintf(&b, "  Total Changes: %d\n", summary.Counts.Total)
	fmt.Fprintf(&b, "  Inserts:       %d\n", summary.Counts.Inserts)
	fmt.Fprintf(&b, "  Updates:       %d\n", summary.Counts.Updates)
	fmt.Fprintf(&b, "  Deletes:       %d", summary.Counts.Deletes)

	if len(summary.Detail) > 0 {
		fmt.Fprintf(&b, "\n\n  Tables affected:")
		for _, group := range summary.Detail {
			name := group.Table
			if name == "" {
				name = "unknown"
			}
			fmt.Fprintf(&b, "\n    - %s: %d change(s)", name, group.Len())
		}
	}

	return b.String(), nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "summary"
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
