package models

import (
	"strings"
)

// FileFormat identifies an accepted data file format
type FileFormat string

const (
	// FormatGeoPackage is an OGC GeoPackage (.gpkg)
	FormatGeoPackage FileFormat = "gpkg"
	// FormatSQLite is a plain SQLite database (.sqlite)
	FormatSQLite FileFormat = "sqlite"
	// FormatDB is a SQLite database with the generic .db suffix
	FormatDB FileFormat = "db"
)

// supportedFormats is the closed allow-set, in display order
var supportedFormats = [...]FileFormat{FormatGeoPackage, FormatSQLite, FormatDB}

// SupportedFormats returns the accepted formats in display order
func SupportedFormats() []FileFormat {
	return supportedFormats[:]
}

// SupportedExtensions returns the dotted suffixes of the accepted formats
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedFormats))
	for _, f := range supportedFormats {
		exts = append(exts, f.Extension())
	}
	return exts
}

// Extension returns the dotted file suffix for the format
func (f FileFormat) Extension() string {
	return "." + string(f)
}

// FormatFromExtension maps a file suffix to its format.
// Matching is case-insensitive and the leading dot is optional.
func FormatFromExtension(ext string) (FileFormat, bool) {
	switch FileFormat(strings.ToLower(strings.TrimPrefix(ext, "."))) {
	case FormatGeoPackage:
		return FormatGeoPackage, true
	case FormatSQLite:
		return FormatSQLite, true
	case FormatDB:
		return FormatDB, true
	default:
		return "", false
	}
}

// FileReference is a validated path to a data file
type FileReference struct {
	// Path is the cleaned path as given by the caller
	Path string

	// Format is derived from the path suffix
	Format FileFormat
}

func (r FileReference) String() string {
	return r.Path
}
