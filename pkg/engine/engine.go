// Package engine defines the boundary to changeset engines.
//
// An engine inspects two database files, writes a binary changeset
// describing the row-level delta between them, and can read that changeset
// back as a sequence of (table, operation code) entries. The diff algorithm
// itself lives entirely behind this interface.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// Code is an engine operation code.
// Values follow the SQLite session extension.
type Code int

const (
	// CodeDelete marks a row removed from the base file
	CodeDelete Code = 9
	// CodeInsert marks a row added in the compare file
	CodeInsert Code = 18
	// CodeUpdate marks a row whose values changed
	CodeUpdate Code = 23
)

func (c Code) String() string {
	switch c {
	case CodeDelete:
		return "DELETE"
	case CodeInsert:
		return "INSERT"
	case CodeUpdate:
		return "UPDATE"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Entry is one record of a decoded changeset
type Entry struct {
	Table string
	Code  Code
}

// Engine produces and reads changesets
type Engine interface {
	// CreateChangeset writes the delta between basePath and comparePath to outPath
	CreateChangeset(ctx context.Context, basePath, comparePath, outPath string) error

	// DecodeChangeset reads every entry of a changeset in emission order
	DecodeChangeset(ctx context.Context, path string) ([]Entry, error)

	// HasChanges reports whether a changeset holds at least one entry
	HasChanges(ctx context.Context, path string) (bool, error)

	// ChangeCount returns the number of entries in a changeset
	ChangeCount(ctx context.Context, path string) (int, error)

	// Name returns the name of the engine
	Name() string
}

// ErrMalformedOutput marks structured engine output that could not be parsed
var ErrMalformedOutput = errors.New("malformed engine output")

// Error is the failure kind every engine returns
type Error struct {
	Engine string
	Err    error
}

// Errorf creates an engine error with a formatted cause
func Errorf(engine, format string, args ...any) *Error {
	return &Error{Engine: engine, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Engine == "" {
		return e.Err.Error()
	}
	return e.Engine + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
