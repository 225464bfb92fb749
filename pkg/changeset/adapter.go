// Package changeset is the call boundary between comparisons and a
// changeset engine. It owns the temporary artifact an engine writes and
// translates engine codes and failures into the domain model.
package changeset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geobeyond/geodiff-action/pkg/engine"
	"github.com/geobeyond/geodiff-action/pkg/logging"
	"github.com/geobeyond/geodiff-action/pkg/models"
	"github.com/geobeyond/geodiff-action/pkg/workspace"
)

// FileName is the name of the changeset inside its workspace
const FileName = "changeset.diff"

// Artifact is a changeset written by an engine.
// It must be closed by the call that created it.
type Artifact struct {
	// Path is the location of the changeset file
	Path string

	scope *workspace.Scope
}

// Workspace returns the directory owning the artifact
func (a *Artifact) Workspace() string {
	return a.scope.Root()
}

// Close deletes the changeset file and then its workspace
func (a *Artifact) Close() error {
	if a == nil || a.scope == nil {
		return nil
	}
	return a.scope.Close()
}

// Adapter wraps an engine with workspace handling and error translation
type Adapter struct {
	engine    engine.Engine
	logger    logging.Logger
	tempDir   string
	tempLabel string
}

// NewAdapter creates an adapter around eng
func NewAdapter(eng engine.Engine, logger logging.Logger) *Adapter {
	return &Adapter{
		engine:    eng,
		logger:    logging.OrNull(logger),
		tempLabel: "geodiff",
	}
}

// SetTempDir sets the parent directory of workspaces (system temp when empty)
func (a *Adapter) SetTempDir(dir string) {
	a.tempDir = dir
}

// EngineName returns the name of the wrapped engine
func (a *Adapter) EngineName() string {
	return a.engine.Name()
}

// Create asks the engine for the changeset between base and compare.
// On failure no workspace is left behind.
func (a *Adapter) Create(ctx context.Context, base, compare models.FileReference) (artifact *Artifact, err error) {
	scope, err := workspace.NewIn(a.tempDir, a.tempLabel)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			scope.Close()
		}
	}()

	path, err := scope.Path(FileName)
	if err != nil {
		return nil, err
	}

	a.logger.Debug(ctx, "creating changeset", logging.Fields{
		"base":      base.Path,
		"compare":   compare.Path,
		"workspace": scope.Root(),
	})

	if err := a.engine.CreateChangeset(ctx, base.Path, compare.Path, path); err != nil {
		return nil, engineFailure("failed to create changeset", err)
	}

	return &Artifact{Path: path, scope: scope}, nil
}

// Decode reads the row operations of a changeset in emission order.
// Entries with an operation code outside insert/update/delete are skipped.
func (a *Adapter) Decode(ctx context.Context, artifact *Artifact) ([]models.RowOperation, error) {
	entries, err := a.engine.DecodeChangeset(ctx, artifact.Path)
	if err != nil {
		if errors.Is(err, engine.ErrMalformedOutput) {
			return nil, models.NewError(models.ErrMalformedOutput,
				"failed to parse changes: "+singleLine(err.Error()), err)
		}
		return nil, engineFailure("failed to list changes", err)
	}

	ops := make([]models.RowOperation, 0, len(entries))
	skipped := 0
	for _, entry := range entries {
		kind, ok := KindForCode(entry.Code)
		if !ok {
			skipped++
			continue
		}
		ops = append(ops, models.RowOperation{Table: entry.Table, Kind: kind})
	}

	if skipped > 0 {
		a.logger.Debug(ctx, "skipped unclassified changeset entries", logging.Fields{"skipped": skipped})
	}

	return ops, nil
}

// IsNonEmpty reports whether the changeset has entries.
// Engine errors are logged and reported as false.
func (a *Adapter) IsNonEmpty(ctx context.Context, artifact *Artifact) bool {
	ok, err := a.engine.HasChanges(ctx, artifact.Path)
	if err != nil {
		a.logger.Debug(ctx, "has-changes probe failed", logging.Fields{"error": err.Error()})
		return false
	}
	return ok
}

// Count returns the engine's change count.
// Engine errors are logged and reported as 0.
func (a *Adapter) Count(ctx context.Context, artifact *Artifact) int {
	n, err := a.engine.ChangeCount(ctx, artifact.Path)
	if err != nil {
		a.logger.Debug(ctx, "change-count probe failed", logging.Fields{"error": err.Error()})
		return 0
	}
	return n
}

// KindForCode maps an engine operation code to an operation kind
func KindForCode(code engine.Code) (models.OperationKind, bool) {
	switch code {
	case engine.CodeInsert:
		return models.OpInsert, true
	case engine.CodeUpdate:
		return models.OpUpdate, true
	case engine.CodeDelete:
		return models.OpDelete, true
	default:
		return 0, false
	}
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// singleLine keeps engine messages on one line
func singleLine(s string) string {
	return lineBreaks.Replace(s)
}

func engineFailure(action string, err error) error {
	return models.NewError(models.ErrEngineFailure,
		fmt.Sprintf("%s: %s", action, singleLine(err.Error())), err)
}
