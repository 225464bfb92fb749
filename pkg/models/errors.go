package models

import (
	"errors"
)

// ErrorKind categorizes a comparison failure
type ErrorKind string

const (
	// ErrNotFound means an input file does not exist
	ErrNotFound ErrorKind = "not_found"
	// ErrUnsupportedFormat means an input file has an unknown suffix
	ErrUnsupportedFormat ErrorKind = "unsupported_format"
	// ErrEngineFailure means the changeset could not be created or decoded
	ErrEngineFailure ErrorKind = "engine_failure"
	// ErrMalformedOutput means the engine produced unparseable output
	ErrMalformedOutput ErrorKind = "malformed_output"
)

// GeoDiffError is the user-facing error of a comparison.
// All kinds are terminal for the current invocation.
type GeoDiffError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError creates a GeoDiffError of the given kind
func NewError(kind ErrorKind, message string, cause error) *GeoDiffError {
	return &GeoDiffError{Kind: kind, Message: message, Err: cause}
}

func (e *GeoDiffError) Error() string {
	return e.Message
}

func (e *GeoDiffError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a GeoDiffError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var gerr *GeoDiffError
	if errors.As(err, &gerr) {
		return gerr.Kind == kind
	}
	return false
}

// ValidationError represents an invalid configuration value
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
