package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/geobeyond/geodiff-action/pkg/models"
)

// WriteReport writes the formatted summary to path.
// Mode follows Format: "summary" or "text" for the report, JSON otherwise.
func WriteReport(summary *models.DiffSummary, path string, mode string) error {
	content, err := Format(summary, mode)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(content+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
