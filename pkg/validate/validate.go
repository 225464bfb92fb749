// Package validate checks comparison inputs before any engine work starts.
package validate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/geobeyond/geodiff-action/internal/platform"
	"github.com/geobeyond/geodiff-action/pkg/models"
)

// File confirms that path exists and has a supported extension.
// It has no side effects.
func File(path string) (models.FileReference, error) {
	if err := platform.ValidatePath(path); err != nil {
		return models.FileReference{}, models.NewError(models.ErrNotFound,
			fmt.Sprintf("file not found: %s", path), err)
	}

	clean := platform.NormalizePath(path)

	if _, err := os.Stat(clean); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.FileReference{}, models.NewError(models.ErrNotFound,
				fmt.Sprintf("file not found: %s", path), err)
		}
		return models.FileReference{}, models.NewError(models.ErrNotFound,
			fmt.Sprintf("file not accessible: %s: %v", path, err), err)
	}

	ext := platform.Ext(clean)
	format, ok := models.FormatFromExtension(ext)
	if !ok {
		shown := ext
		if shown == "" {
			shown = "(none)"
		}
		return models.FileReference{}, models.NewError(models.ErrUnsupportedFormat,
			fmt.Sprintf("unsupported file format: %s. Supported formats: %s",
				shown, strings.Join(models.SupportedExtensions(), ", ")), nil)
	}

	return models.FileReference{Path: clean, Format: format}, nil
}

// Pair validates the base file and then the compare file
func Pair(basePath, comparePath string) (base, compare models.FileReference, err error) {
	base, err = File(basePath)
	if err != nil {
		return models.FileReference{}, models.FileReference{}, err
	}

	compare, err = File(comparePath)
	if err != nil {
		return models.FileReference{}, models.FileReference{}, err
	}

	return base, compare, nil
}
