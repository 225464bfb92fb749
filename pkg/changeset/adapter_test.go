package changeset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geobeyond/geodiff-action/pkg/engine"
	"github.com/geobeyond/geodiff-action/pkg/engine/enginefake"
	"github.com/geobeyond/geodiff-action/pkg/models"
)

func newTestAdapter(t *testing.T, eng engine.Engine) (*Adapter, string) {
	t.Helper()
	tempDir := t.TempDir()
	adapter := NewAdapter(eng, nil)
	adapter.SetTempDir(tempDir)
	return adapter, tempDir
}

func refs() (models.FileReference, models.FileReference) {
	return models.FileReference{Path: "base.gpkg", Format: models.FormatGeoPackage},
		models.FileReference{Path: "compare.gpkg", Format: models.FormatGeoPackage}
}

func workspaceCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	return len(entries)
}

func TestCreate(t *testing.T) {
	eng := enginefake.New()
	adapter, tempDir := newTestAdapter(t, eng)
	base, compare := refs()

	artifact, err := adapter.Create(context.Background(), base, compare)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if filepath.Base(artifact.Path) != FileName {
		t.Errorf("artifact path = %s, want file %s", artifact.Path, FileName)
	}
	if filepath.Dir(artifact.Path) != artifact.Workspace() {
		t.Errorf("artifact should live in its workspace")
	}
	if _, err := os.Stat(artifact.Path); err != nil {
		t.Errorf("changeset should exist: %v", err)
	}

	if err := artifact.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(artifact.Workspace()); !os.IsNotExist(err) {
		t.Error("workspace should be removed after Close")
	}
	if n := workspaceCount(t, tempDir); n != 0 {
		t.Errorf("temp dir holds %d entries after Close, want 0", n)
	}
}

func TestCreate_EngineFailure(t *testing.T) {
	eng := enginefake.New()
	eng.CreateErr = engine.Errorf("sqlitediff", "table %q exists only in base\nschemas are incompatible\r\nabort", "layer_a")
	adapter, tempDir := newTestAdapter(t, eng)
	base, compare := refs()

	artifact, err := adapter.Create(context.Background(), base, compare)
	if artifact != nil {
		t.Error("Create() should not return an artifact on failure")
	}
	if !models.IsKind(err, models.ErrEngineFailure) {
		t.Fatalf("Create() error = %v, want EngineFailure", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to create changeset: ") {
		t.Errorf("error = %q", err.Error())
	}
	if strings.ContainsAny(err.Error(), "\r\n") {
		t.Errorf("error should be a single line: %q", err.Error())
	}

	var engErr *engine.Error
	if !errors.As(err, &engErr) {
		t.Error("engine error should stay reachable through Unwrap")
	}

	if n := workspaceCount(t, tempDir); n != 0 {
		t.Errorf("failed Create left %d workspace(s) behind", n)
	}
}

func TestDecode(t *testing.T) {
	eng := enginefake.New(
		engine.Entry{Table: "cities", Code: engine.CodeUpdate},
		engine.Entry{Table: "cities", Code: engine.CodeDelete},
		engine.Entry{Table: "rivers", Code: engine.CodeInsert},
		engine.Entry{Table: "cities", Code: engine.Code(99)},
		engine.Entry{Table: "cities", Code: engine.CodeInsert},
	)
	adapter, _ := newTestAdapter(t, eng)
	base, compare := refs()
	ctx := context.Background()

	artifact, err := adapter.Create(ctx, base, compare)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer artifact.Close()

	ops, err := adapter.Decode(ctx, artifact)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	expected := []models.RowOperation{
		{Table: "cities", Kind: models.OpUpdate},
		{Table: "cities", Kind: models.OpDelete},
		{Table: "rivers", Kind: models.OpInsert},
		{Table: "cities", Kind: models.OpInsert},
	}
	if len(ops) != len(expected) {
		t.Fatalf("Decode() returned %d ops, want %d: %v", len(ops), len(expected), ops)
	}
	for i := range expected {
		if ops[i] != expected[i] {
			t.Errorf("ops[%d] = %+v, want %+v", i, ops[i], expected[i])
		}
	}
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     models.ErrorKind
		contains string
	}{
		{
			name:     "engine failure",
			err:      engine.Errorf("sqlitediff", "file is not a database"),
			kind:     models.ErrEngineFailure,
			contains: "failed to list changes: sqlitediff: file is not a database",
		},
		{
			name:     "malformed output",
			err:      &engine.Error{Engine: "geodiff", Err: fmt.Errorf("%w: unexpected end of JSON input", engine.ErrMalformedOutput)},
			kind:     models.ErrMalformedOutput,
			contains: "failed to parse changes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := enginefake.New()
			eng.DecodeErr = tt.err
			adapter, _ := newTestAdapter(t, eng)
			base, compare := refs()
			ctx := context.Background()

			artifact, err := adapter.Create(ctx, base, compare)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			defer artifact.Close()

			_, err = adapter.Decode(ctx, artifact)
			if !models.IsKind(err, tt.kind) {
				t.Fatalf("Decode() error = %v, want kind %s", err, tt.kind)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.contains)
			}
		})
	}
}

func TestProbes_AreLenient(t *testing.T) {
	eng := enginefake.New(engine.Entry{Table: "cities", Code: engine.CodeInsert})
	adapter, _ := newTestAdapter(t, eng)
	base, compare := refs()
	ctx := context.Background()

	artifact, err := adapter.Create(ctx, base, compare)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer artifact.Close()

	if !adapter.IsNonEmpty(ctx, artifact) {
		t.Error("IsNonEmpty() = false, want true")
	}
	if n := adapter.Count(ctx, artifact); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	eng.HasErr = engine.Errorf("fake", "cannot open changeset")
	eng.CountErr = engine.Errorf("fake", "cannot open changeset")

	if adapter.IsNonEmpty(ctx, artifact) {
		t.Error("IsNonEmpty() should report false on engine error")
	}
	if n := adapter.Count(ctx, artifact); n != 0 {
		t.Errorf("Count() = %d on engine error, want 0", n)
	}
}

func TestKindForCode(t *testing.T) {
	tests := []struct {
		code engine.Code
		kind models.OperationKind
		ok   bool
	}{
		{engine.CodeInsert, models.OpInsert, true},
		{engine.CodeUpdate, models.OpUpdate, true},
		{engine.CodeDelete, models.OpDelete, true},
		{engine.Code(0), 0, false},
		{engine.Code(1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			kind, ok := KindForCode(tt.code)
			if kind != tt.kind || ok != tt.ok {
				t.Errorf("KindForCode(%v) = %v, %v; want %v, %v", tt.code, kind, ok, tt.kind, tt.ok)
			}
		})
	}
}

func TestArtifactClose_Nil(t *testing.T) {
	var a *Artifact
	if err := a.Close(); err != nil {
		t.Errorf("Close() on nil artifact error = %v", err)
	}
}
