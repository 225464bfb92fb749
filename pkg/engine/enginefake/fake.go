// Package enginefake provides a scripted changeset engine for tests.
package enginefake

import (
	"context"
	"os"

	"github.com/geobeyond/geodiff-action/pkg/engine"
)

// Engine replays scripted results and records every call it receives.
// The zero value is an engine that reports no changes.
type Engine struct {
	// Entries is returned by DecodeChangeset
	Entries []engine.Entry

	// NonEmpty overrides HasChanges; nil means len(Entries) > 0
	NonEmpty *bool

	// Count overrides ChangeCount; nil means len(Entries)
	Count *int

	CreateErr error
	DecodeErr error
	HasErr    error
	CountErr  error

	// Calls lists invoked methods in order
	Calls []string

	// Created lists the changeset paths written by CreateChangeset
	Created []string
}

// New returns an engine that decodes to entries
func New(entries ...engine.Entry) *Engine {
	return &Engine{Entries: entries}
}

// Bool returns a pointer to b, for NonEmpty
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n, for Count
func Int(n int) *int { return &n }

func (e *Engine) CreateChangeset(ctx context.Context, basePath, comparePath, outPath string) error {
	e.Calls = append(e.Calls, "create")
	if e.CreateErr != nil {
		return e.CreateErr
	}
	if err := os.WriteFile(outPath, []byte("fake changeset"), 0644); err != nil {
		return err
	}
	e.Created = append(e.Created, outPath)
	return nil
}

func (e *Engine) DecodeChangeset(ctx context.Context, path string) ([]engine.Entry, error) {
	e.Calls = append(e.Calls, "decode")
	if e.DecodeErr != nil {
		return nil, e.DecodeErr
	}
	return append([]engine.Entry(nil), e.Entries...), nil
}

func (e *Engine) HasChanges(ctx context.Context, path string) (bool, error) {
	e.Calls = append(e.Calls, "has_changes")
	if e.HasErr != nil {
		return false, e.HasErr
	}
	if e.NonEmpty != nil {
		return *e.NonEmpty, nil
	}
	return len(e.Entries) > 0, nil
}

func (e *Engine) ChangeCount(ctx context.Context, path string) (int, error) {
	e.Calls = append(e.Calls, "count")
	if e.CountErr != nil {
		return 0, e.CountErr
	}
	if e.Count != nil {
		return *e.Count, nil
	}
	return len(e.Entries), nil
}

func (e *Engine) Name() string {
	return "fake"
}
