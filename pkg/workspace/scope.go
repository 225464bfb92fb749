// Package workspace owns the temporary storage of a single comparison.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Scope is a temporary directory holding the artifacts of one comparison.
// Tracked artifacts are removed before the directory itself on Close.
type Scope struct {
	id       string
	rootPath string

	mu        sync.Mutex
	artifacts []string
	closed    bool
}

// New creates a fresh scope under the system temp directory
func New(prefix string) (*Scope, error) {
	return NewIn("", prefix)
}

// NewIn creates a fresh scope under parent (system temp dir when empty)
func NewIn(parent, prefix string) (*Scope, error) {
	id := uuid.New().String()
	if prefix == "" {
		prefix = "geodiff"
	}

	rootPath, err := os.MkdirTemp(parent, fmt.Sprintf("%s-%s-*", prefix, id[:8]))
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Scope{id: id, rootPath: rootPath}, nil
}

// ID returns the unique identifier of the scope
func (s *Scope) ID() string {
	return s.id
}

// Root returns the absolute directory of the scope
func (s *Scope) Root() string {
	return s.rootPath
}

// Path reserves an artifact name and returns its full path.
// The name must be a single path element.
func (s *Scope) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid artifact name: %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", fmt.Errorf("workspace %s is closed", s.id)
	}

	for _, existing := range s.artifacts {
		if existing == name {
			return filepath.Join(s.rootPath, name), nil
		}
	}
	s.artifacts = append(s.artifacts, name)

	return filepath.Join(s.rootPath, name), nil
}

// Exists checks if an artifact has been written
func (s *Scope) Exists(name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.rootPath, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Remove deletes one artifact; a missing artifact is not an error
func (s *Scope) Remove(name string) error {
	if err := os.Remove(filepath.Join(s.rootPath, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// Close removes every tracked artifact, then the directory.
// It is safe to call more than once; only the first call does work.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	artifacts := s.artifacts
	s.artifacts = nil
	s.mu.Unlock()

	var firstErr error
	for _, name := range artifacts {
		if err := s.Remove(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// Engines may leave journals or exports next to the artifact
	if err := os.RemoveAll(s.rootPath); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to remove workspace: %w", err)
	}

	return firstErr
}
