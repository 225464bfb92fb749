// Package geodiffcli runs the geodiff command line tool as a changeset engine
package geodiffcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/geobeyond/geodiff-action/pkg/engine"
	"github.com/geobeyond/geodiff-action/pkg/logging"
)

// Name is the engine name used in configuration and errors
const Name = "geodiff"

// DefaultBinary is looked up in PATH when no binary is configured
const DefaultBinary = "geodiff"

// Runner executes a command and returns its standard output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec, folding stderr into the error
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// Engine drives an external geodiff binary
type Engine struct {
	binary string
	run    Runner
	logger logging.Logger
}

// New creates an engine for binary (DefaultBinary when empty)
func New(binary string, logger logging.Logger) *Engine {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Engine{
		binary: binary,
		run:    ExecRunner,
		logger: logging.OrNull(logger),
	}
}

// SetRunner replaces the command runner
func (e *Engine) SetRunner(run Runner) {
	e.run = run
}

// Name returns the engine name
func (e *Engine) Name() string {
	return Name
}

// Binary returns the configured binary
func (e *Engine) Binary() string {
	return e.binary
}

type changeList struct {
	Geodiff []struct {
		Table string `json:"table"`
		Type  string `json:"type"`
	} `json:"geodiff"`
}

type summaryList struct {
	Summary []struct {
		Table  string `json:"table"`
		Insert int    `json:"insert"`
		Update int    `json:"update"`
		Delete int    `json:"delete"`
	} `json:"geodiff_summary"`
}

// CreateChangeset runs "geodiff diff"
func (e *Engine) CreateChangeset(ctx context.Context, basePath, comparePath, outPath string) error {
	if _, err := e.exec(ctx, "diff", basePath, comparePath, outPath); err != nil {
		return err
	}
	if _, err := os.Stat(outPath); err != nil {
		return engine.Errorf(Name, "diff did not write %s", outPath)
	}
	return nil
}

// DecodeChangeset runs "geodiff as-json" and maps change types to codes.
// Unknown types decode to code 0.
func (e *Engine) DecodeChangeset(ctx context.Context, path string) ([]engine.Entry, error) {
	data, err := e.export(ctx, "as-json", path)
	if err != nil {
		return nil, err
	}

	var list changeList
	if err := unmarshal(data, &list); err != nil {
		return nil, err
	}

	entries := make([]engine.Entry, 0, len(list.Geodiff))
	for _, change := range list.Geodiff {
		entries = append(entries, engine.Entry{Table: change.Table, Code: codeForType(change.Type)})
	}
	return entries, nil
}

// ChangeCount runs "geodiff as-summary" and sums every table's counters
func (e *Engine) ChangeCount(ctx context.Context, path string) (int, error) {
	data, err := e.export(ctx, "as-summary", path)
	if err != nil {
		return 0, err
	}

	var list summaryList
	if err := unmarshal(data, &list); err != nil {
		return 0, err
	}

	total := 0
	for _, table := range list.Summary {
		total += table.Insert + table.Update + table.Delete
	}
	return total, nil
}

// HasChanges reports whether the summary counts any change
func (e *Engine) HasChanges(ctx context.Context, path string) (bool, error) {
	count, err := e.ChangeCount(ctx, path)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// export runs a geodiff subcommand that writes JSON next to the changeset
// and returns the written document
func (e *Engine) export(ctx context.Context, command, path string) ([]byte, error) {
	out := filepath.Join(filepath.Dir(path), strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+"."+command+".json")
	defer os.Remove(out)

	if _, err := e.exec(ctx, command, path, out); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(out)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, engine.Errorf(Name, "read %s output: %w", command, err)
	}
	return data, nil
}

func (e *Engine) exec(ctx context.Context, args ...string) ([]byte, error) {
	e.logger.Debug(ctx, "running geodiff", logging.Fields{
		"binary": e.binary,
		"args":   strings.Join(args, " "),
	})

	out, err := e.run(ctx, e.binary, args...)
	if err != nil {
		return out, engine.Errorf(Name, "%s: %w", args[0], err)
	}
	return out, nil
}

// unmarshal treats empty output as an empty document
func unmarshal(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &engine.Error{Engine: Name, Err: fmt.Errorf("%w: %v", engine.ErrMalformedOutput, err)}
	}
	return nil
}

func codeForType(t string) engine.Code {
	switch strings.ToLower(t) {
	case "insert":
		return engine.CodeInsert
	case "update":
		return engine.CodeUpdate
	case "delete":
		return engine.CodeDelete
	default:
		return 0
	}
}
