package sqlitediff

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geobeyond/geodiff-action/internal/gpkgtest"
	"github.com/geobeyond/geodiff-action/pkg/engine"
)

func tally(entries []engine.Entry) map[engine.Code]int {
	counts := make(map[engine.Code]int)
	for _, e := range entries {
		counts[e.Code]++
	}
	return counts
}

func diff(t *testing.T, eng *Engine, base, compare string) (string, []engine.Entry) {
	t.Helper()

	out := filepath.Join(t.TempDir(), "changeset.diff")
	require.NoError(t, eng.CreateChangeset(context.Background(), base, compare, out))

	entries, err := eng.DecodeChangeset(context.Background(), out)
	require.NoError(t, err)
	return out, entries
}

func TestEngine_IdenticalFiles(t *testing.T) {
	dir := t.TempDir()
	base := gpkgtest.Write(t, dir, "base.gpkg", "cities", gpkgtest.CitiesBase)
	identical := gpkgtest.Write(t, dir, "identical.gpkg", "cities", gpkgtest.CitiesBase)

	eng := New(nil)
	out, entries := diff(t, eng, base, identical)
	assert.Empty(t, entries)

	count, err := eng.ChangeCount(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	has, err := eng.HasChanges(context.Background(), out)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestEngine_SameFile(t *testing.T) {
	base := gpkgtest.Write(t, t.TempDir(), "base.gpkg", "cities", gpkgtest.CitiesBase)

	_, entries := diff(t, New(nil), base, base)
	assert.Empty(t, entries)
}

func TestEngine_InsertsOnly(t *testing.T) {
	dir := t.TempDir()
	empty := gpkgtest.Write(t, dir, "empty.gpkg", "cities", nil)
	base := gpkgtest.Write(t, dir, "base.gpkg", "cities", gpkgtest.CitiesBase)

	eng := New(nil)
	out, entries := diff(t, eng, empty, base)

	require.Len(t, entries, 5)
	assert.Equal(t, map[engine.Code]int{engine.CodeInsert: 5}, tally(entries))
	for _, e := range entries {
		assert.Equal(t, "cities", e.Table)
	}

	count, err := eng.ChangeCount(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestEngine_DeletesOnly(t *testing.T) {
	dir := t.TempDir()
	base := gpkgtest.Write(t, dir, "base.gpkg", "cities", gpkgtest.CitiesBase)
	empty := gpkgtest.Write(t, dir, "empty.gpkg", "cities", nil)

	_, entries := diff(t, New(nil), base, empty)
	assert.Equal(t, map[engine.Code]int{engine.CodeDelete: 5}, tally(entries))
}

func TestEngine_MixedChanges(t *testing.T) {
	dir := t.TempDir()
	base := gpkgtest.Write(t, dir, "base.gpkg", "cities", gpkgtest.CitiesBase)
	modified := gpkgtest.Write(t, dir, "modified.gpkg", "cities", gpkgtest.CitiesModified)

	eng := New(nil)
	out, entries := diff(t, eng, base, modified)

	assert.Equal(t, map[engine.Code]int{
		engine.CodeInsert: 2,
		engine.CodeUpdate: 2,
		engine.CodeDelete: 2,
	}, tally(entries))

	want := []engine.Code{
		engine.CodeDelete, engine.CodeDelete,
		engine.CodeUpdate, engine.CodeUpdate,
		engine.CodeInsert, engine.CodeInsert,
	}
	got := make([]engine.Code, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Code)
	}
	assert.Equal(t, want, got)

	db, err := sql.Open("sqlite", out)
	require.NoError(t, err)
	defer db.Close()

	var keys []string
	rows, err := db.Query(`SELECT pk FROM changes ORDER BY seq`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var pk string
		require.NoError(t, rows.Scan(&pk))
		keys = append(keys, pk)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"3", "5", "1", "4", "6", "7"}, keys)
}

func TestEngine_GeometryOnlyChangeIsUpdate(t *testing.T) {
	dir := t.TempDir()
	moved := append([]gpkgtest.Feature(nil), gpkgtest.CitiesBase...)
	moved[1].Lon += 0.01

	base := gpkgtest.Write(t, dir, "base.gpkg", "cities", gpkgtest.CitiesBase)
	compare := gpkgtest.Write(t, dir, "moved.gpkg", "cities", moved)

	_, entries := diff(t, New(nil), base, compare)
	require.Len(t, entries, 1)
	assert.Equal(t, engine.Entry{Table: "cities", Code: engine.CodeUpdate}, entries[0])
}

func TestEngine_MetadataTablesIgnored(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.gpkg")
	compare := filepath.Join(dir, "compare.gpkg")
	require.NoError(t, gpkgtest.Create(base, "cities", gpkgtest.CitiesBase, "Base version"))
	require.NoError(t, gpkgtest.Create(compare, "cities", gpkgtest.CitiesBase, "Identical copy"))

	_, entries := diff(t, New(nil), base, compare)
	assert.Empty(t, entries, "gpkg_contents descriptions differ but must not be reported")
}

func TestEngine_MultipleTablesAndProgress(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.gpkg")
	compare := filepath.Join(dir, "compare.gpkg")
	require.NoError(t, gpkgtest.Create(base, "cities", gpkgtest.CitiesBase, ""))
	require.NoError(t, gpkgtest.Create(base, "locations", gpkgtest.Locations(50, 42), ""))
	require.NoError(t, gpkgtest.Create(compare, "cities", gpkgtest.CitiesModified, ""))
	require.NoError(t, gpkgtest.Create(compare, "locations", gpkgtest.Locations(50, 42)[:45], ""))

	type step struct {
		table       string
		done, total int
	}
	var steps []step

	eng := New(nil)
	eng.SetProgressCallback(func(table string, done, total int) {
		steps = append(steps, step{table, done, total})
	})

	_, entries := diff(t, eng, base, compare)

	assert.Equal(t, []step{{"cities", 1, 2}, {"locations", 2, 2}}, steps)

	perTable := make(map[string]int)
	for _, e := range entries {
		perTable[e.Table]++
	}
	assert.Equal(t, map[string]int{"cities": 6, "locations": 5}, perTable)
}

func TestEngine_SkipTables(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.gpkg")
	compare := filepath.Join(dir, "compare.gpkg")
	require.NoError(t, gpkgtest.Create(base, "cities", gpkgtest.CitiesBase, ""))
	require.NoError(t, gpkgtest.Create(base, "scratch", gpkgtest.CitiesBase, ""))
	require.NoError(t, gpkgtest.Create(compare, "cities", gpkgtest.CitiesBase, ""))
	require.NoError(t, gpkgtest.Create(compare, "scratch", nil, ""))

	eng := New(nil)
	eng.SetSkipTables([]string{"Scratch"})

	_, entries := diff(t, eng, base, compare)
	assert.Empty(t, entries)
}

func TestEngine_TableWithoutPrimaryKeySkipped(t *testing.T) {
	dir := t.TempDir()
	base := gpkgtest.Write(t, dir, "base.gpkg", "cities", gpkgtest.CitiesBase)
	compare := gpkgtest.Write(t, dir, "compare.gpkg", "cities", gpkgtest.CitiesBase)

	for i, path := range []string{base, compare} {
		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		_, err = db.Exec(`CREATE TABLE notes (body TEXT)`)
		require.NoError(t, err)
		if i == 1 {
			_, err = db.Exec(`INSERT INTO notes (body) VALUES ('only in compare')`)
			require.NoError(t, err)
		}
		require.NoError(t, db.Close())
	}

	_, entries := diff(t, New(nil), base, compare)
	assert.Empty(t, entries)
}

func TestEngine_IncompatibleSchemas(t *testing.T) {
	dir := t.TempDir()
	layerA := gpkgtest.Write(t, dir, "a.gpkg", "layer_a", gpkgtest.CitiesBase)
	layerB := gpkgtest.Write(t, dir, "b.gpkg", "layer_b", gpkgtest.CitiesBase)

	out := filepath.Join(t.TempDir(), "changeset.diff")
	err := New(nil).CreateChangeset(context.Background(), layerA, layerB, out)
	require.Error(t, err)

	var engErr *engine.Error
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, Name, engErr.Engine)
	assert.Contains(t, err.Error(), "incompatible schemas")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no changeset should be written")
}

func TestEngine_ColumnMismatch(t *testing.T) {
	dir := t.TempDir()
	base := gpkgtest.Write(t, dir, "base.gpkg", "cities", gpkgtest.CitiesBase)
	compare := gpkgtest.Write(t, dir, "compare.gpkg", "cities", gpkgtest.CitiesBase)

	db, err := sql.Open("sqlite", compare)
	require.NoError(t, err)
	_, err = db.Exec(`ALTER TABLE cities ADD COLUMN region TEXT`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out := filepath.Join(t.TempDir(), "changeset.diff")
	err = New(nil).CreateChangeset(context.Background(), base, compare, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `columns of table "cities" differ`)
}

func TestEngine_BaseNotModified(t *testing.T) {
	dir := t.TempDir()
	base := gpkgtest.Write(t, dir, "base.gpkg", "cities", gpkgtest.CitiesBase)
	modified := gpkgtest.Write(t, dir, "modified.gpkg", "cities", gpkgtest.CitiesModified)

	before, err := os.ReadFile(base)
	require.NoError(t, err)

	diff(t, New(nil), base, modified)

	after, err := os.ReadFile(base)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEngine_ExistingOutputRejected(t *testing.T) {
	dir := t.TempDir()
	base := gpkgtest.Write(t, dir, "base.gpkg", "cities", gpkgtest.CitiesBase)

	out := filepath.Join(dir, "changeset.diff")
	require.NoError(t, os.WriteFile(out, []byte("x"), 0644))

	err := New(nil).CreateChangeset(context.Background(), base, base, out)
	require.Error(t, err)
}

func TestEngine_DecodeMalformedChangeset(t *testing.T) {
	dir := t.TempDir()
	eng := New(nil)

	garbage := filepath.Join(dir, "garbage.diff")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a changeset, just some bytes to fill a page"), 0644))

	_, err := eng.DecodeChangeset(context.Background(), garbage)
	require.Error(t, err)
	var engErr *engine.Error
	assert.True(t, errors.As(err, &engErr))

	_, err = eng.ChangeCount(context.Background(), garbage)
	assert.Error(t, err)

	has, err := eng.HasChanges(context.Background(), garbage)
	assert.Error(t, err)
	assert.False(t, has)
}

func TestEngine_DecodeMissingChangeset(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.diff")

	_, err := New(nil).DecodeChangeset(context.Background(), missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr), "decode must not create the file")
}

func TestEngine_DecodeForeignDatabase(t *testing.T) {
	base := gpkgtest.Write(t, t.TempDir(), "base.gpkg", "cities", gpkgtest.CitiesBase)

	_, err := New(nil).DecodeChangeset(context.Background(), base)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read changeset")
}

func TestEngine_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	base := gpkgtest.Write(t, dir, "base.gpkg", "cities", gpkgtest.CitiesBase)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(nil).CreateChangeset(ctx, base, base, filepath.Join(dir, "changeset.diff"))
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	assert.Equal(t, "sqlitediff", New(nil).Name())
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()

	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0644))
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestEngine_PathsWithURICharacters(t *testing.T) {
	src := t.TempDir()
	base := gpkgtest.Write(t, src, "base.gpkg", "cities", gpkgtest.CitiesBase)
	modified := gpkgtest.Write(t, src, "modified.gpkg", "cities", gpkgtest.CitiesModified)

	dir := t.TempDir()
	oddBase := filepath.Join(dir, "base?v=1#rev%20a.gpkg")
	oddCompare := filepath.Join(dir, "modified?mode=rwc#b.gpkg")
	copyFile(t, base, oddBase)
	copyFile(t, modified, oddCompare)

	outDir := filepath.Join(t.TempDir(), "work?tmp#1")
	require.NoError(t, os.Mkdir(outDir, 0755))
	out := filepath.Join(outDir, "changeset.diff")

	eng := New(nil)
	require.NoError(t, eng.CreateChangeset(context.Background(), oddBase, oddCompare, out))

	entries, err := eng.DecodeChangeset(context.Background(), out)
	require.NoError(t, err)
	assert.Len(t, entries, 6)
	assert.Equal(t, map[engine.Code]int{
		engine.CodeInsert: 2,
		engine.CodeUpdate: 2,
		engine.CodeDelete: 2,
	}, tally(entries))

	count, err := eng.ChangeCount(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	assert.ElementsMatch(t, []string{"base?v=1#rev%20a.gpkg", "modified?mode=rwc#b.gpkg"}, dirNames(t, dir),
		"no stray databases next to the inputs")
	assert.Equal(t, []string{"changeset.diff"}, dirNames(t, outDir))
}

func TestEngine_MissingInputsNotCreated(t *testing.T) {
	dir := t.TempDir()
	present := gpkgtest.Write(t, dir, "present.gpkg", "cities", gpkgtest.CitiesBase)
	missing := filepath.Join(dir, "vanished.gpkg")

	tests := []struct {
		name          string
		base, compare string
	}{
		{"base", missing, present},
		{"compare", present, missing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "changeset.diff")
			err := New(nil).CreateChangeset(context.Background(), tt.base, tt.compare, out)
			require.Error(t, err)

			var engErr *engine.Error
			assert.True(t, errors.As(err, &engErr))

			_, statErr := os.Stat(missing)
			assert.True(t, os.IsNotExist(statErr), "a missing input must not be created")
		})
	}
}

func TestFileURI(t *testing.T) {
	tests := []struct {
		path string
		mode string
		want string
	}{
		{"/data/base.gpkg", "ro", "file:///data/base.gpkg?mode=ro"},
		{"/data/base?v=1.gpkg", "ro", "file:///data/base%3Fv=1.gpkg?mode=ro"},
		{"/data/a#b c%.gpkg", "rwc", "file:///data/a%23b%20c%25.gpkg?mode=rwc"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := fileURI(tt.path, tt.mode); got != tt.want {
				t.Errorf("fileURI(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
