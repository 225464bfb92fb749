// Package sqlitediff is the native changeset engine.
//
// It attaches the compare file to a read-only connection on the base file
// and matches rows of every user table by primary key. The resulting
// changeset is a small SQLite file whose schema is managed by embedded
// goose migrations.
package sqlitediff

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/geobeyond/geodiff-action/pkg/engine"
	"github.com/geobeyond/geodiff-action/pkg/logging"
)

// Name is the engine name used in configuration and errors
const Name = "sqlitediff"

//go:embed migrations/*.sql
var migrations embed.FS

// metadataPrefixes are table name prefixes never compared
var metadataPrefixes = []string{"gpkg_", "rtree_", "sqlite_"}

// ProgressFunc is called after each table has been compared
type ProgressFunc func(table string, done, total int)

// Engine compares SQLite and GeoPackage files
type Engine struct {
	logger   logging.Logger
	skip     map[string]struct{}
	progress ProgressFunc
}

// New creates a new engine
func New(logger logging.Logger) *Engine {
	return &Engine{
		logger: logging.OrNull(logger),
		skip:   make(map[string]struct{}),
	}
}

// SetSkipTables excludes tables by name in addition to metadata tables
func (e *Engine) SetSkipTables(names []string) {
	e.skip = make(map[string]struct{}, len(names))
	for _, name := range names {
		e.skip[strings.ToLower(name)] = struct{}{}
	}
}

// SetProgressCallback sets the per-table progress callback
func (e *Engine) SetProgressCallback(fn ProgressFunc) {
	e.progress = fn
}

// Name returns the engine name
func (e *Engine) Name() string {
	return Name
}

// column is one entry of a table's pragma_table_info
type column struct {
	name string
	pk   int
}

// table is a user table present in both files
type table struct {
	name    string
	keys    []string
	columns []string
}

// CreateChangeset compares basePath with comparePath and writes the
// changeset to outPath
func (e *Engine) CreateChangeset(ctx context.Context, basePath, comparePath, outPath string) error {
	src, err := sql.Open("sqlite", fileURI(basePath, "ro"))
	if err != nil {
		return engine.Errorf(Name, "open base: %w", err)
	}
	defer src.Close()
	src.SetMaxOpenConns(1)

	conn, err := src.Conn(ctx)
	if err != nil {
		return engine.Errorf(Name, "open base: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS cmp`, fileURI(comparePath, "ro")); err != nil {
		return engine.Errorf(Name, "attach compare: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `PRAGMA query_only = ON`); err != nil {
		return engine.Errorf(Name, "set read-only: %w", err)
	}

	tables, err := e.matchTables(ctx, conn)
	if err != nil {
		return err
	}

	out, err := createArtifact(ctx, outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	tx, err := out.BeginTx(ctx, nil)
	if err != nil {
		return engine.Errorf(Name, "write changeset: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO changes (table_name, op, pk) VALUES (?, ?, ?)`)
	if err != nil {
		return engine.Errorf(Name, "write changeset: %w", err)
	}
	defer stmt.Close()

	total := 0
	for i, t := range tables {
		n, err := diffTable(ctx, conn, stmt, t)
		if err != nil {
			return err
		}
		total += n

		e.logger.Debug(ctx, "table compared", logging.Fields{
			"table":   t.name,
			"changes": n,
		})
		if e.progress != nil {
			e.progress(t.name, i+1, len(tables))
		}
	}

	if err := tx.Commit(); err != nil {
		return engine.Errorf(Name, "write changeset: %w", err)
	}

	e.logger.Debug(ctx, "changeset written", logging.Fields{
		"path":    outPath,
		"tables":  len(tables),
		"changes": total,
	})
	return nil
}

// DecodeChangeset reads every record of a changeset in write order
func (e *Engine) DecodeChangeset(ctx context.Context, path string) ([]engine.Entry, error) {
	db, err := openArtifact(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT table_name, op FROM changes ORDER BY seq`)
	if err != nil {
		return nil, engine.Errorf(Name, "read changeset: %w", err)
	}
	defer rows.Close()

	var entries []engine.Entry
	for rows.Next() {
		var entry engine.Entry
		if err := rows.Scan(&entry.Table, &entry.Code); err != nil {
			return nil, engine.Errorf(Name, "read changeset: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, engine.Errorf(Name, "read changeset: %w", err)
	}

	return entries, nil
}

// ChangeCount returns the number of records in a changeset
func (e *Engine) ChangeCount(ctx context.Context, path string) (int, error) {
	db, err := openArtifact(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM changes`).Scan(&count); err != nil {
		return 0, engine.Errorf(Name, "count changes: %w", err)
	}
	return count, nil
}

// HasChanges reports whether a changeset holds at least one record
func (e *Engine) HasChanges(ctx context.Context, path string) (bool, error) {
	count, err := e.ChangeCount(ctx, path)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// matchTables lists the user tables of both files and checks that their
// schemas agree
func (e *Engine) matchTables(ctx context.Context, conn *sql.Conn) ([]table, error) {
	baseNames, err := e.userTables(ctx, conn, "main")
	if err != nil {
		return nil, err
	}
	compareNames, err := e.userTables(ctx, conn, "cmp")
	if err != nil {
		return nil, err
	}

	if !slices.Equal(baseNames, compareNames) {
		return nil, engine.Errorf(Name, "incompatible schemas: base has tables [%s], compare has tables [%s]",
			strings.Join(baseNames, ", "), strings.Join(compareNames, ", "))
	}

	tables := make([]table, 0, len(baseNames))
	for _, name := range baseNames {
		baseCols, err := tableColumns(ctx, conn, "main", name)
		if err != nil {
			return nil, err
		}
		compareCols, err := tableColumns(ctx, conn, "cmp", name)
		if err != nil {
			return nil, err
		}
		if !slices.Equal(baseCols, compareCols) {
			return nil, engine.Errorf(Name, "incompatible schemas: columns of table %q differ", name)
		}

		t := buildTable(name, baseCols)
		if len(t.keys) == 0 {
			e.logger.Warn(ctx, "skipping table without primary key", logging.Fields{"table": name})
			continue
		}
		tables = append(tables, t)
	}

	return tables, nil
}

// userTables returns the sorted names of comparable tables in schema
func (e *Engine) userTables(ctx context.Context, conn *sql.Conn, schema string) ([]string, error) {
	query := fmt.Sprintf(`SELECT name FROM %s.sqlite_master WHERE type = 'table' ORDER BY name`, schema)
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, engine.Errorf(Name, "list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, engine.Errorf(Name, "list tables: %w", err)
		}
		if e.skipped(name) {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, engine.Errorf(Name, "list tables: %w", err)
	}

	return names, nil
}

func (e *Engine) skipped(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range metadataPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	_, ok := e.skip[lower]
	return ok
}

func tableColumns(ctx context.Context, conn *sql.Conn, schema, name string) ([]column, error) {
	rows, err := conn.QueryContext(ctx, `SELECT name, pk FROM pragma_table_info(?, ?) ORDER BY cid`, name, schema)
	if err != nil {
		return nil, engine.Errorf(Name, "read columns of %s: %w", name, err)
	}
	defer rows.Close()

	var cols []column
	for rows.Next() {
		var c column
		if err := rows.Scan(&c.name, &c.pk); err != nil {
			return nil, engine.Errorf(Name, "read columns of %s: %w", name, err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, engine.Errorf(Name, "read columns of %s: %w", name, err)
	}

	return cols, nil
}

func buildTable(name string, cols []column) table {
	t := table{name: name}

	keyed := make([]column, 0, len(cols))
	for _, c := range cols {
		if c.pk > 0 {
			keyed = append(keyed, c)
		} else {
			t.columns = append(t.columns, c.name)
		}
	}
	slices.SortFunc(keyed, func(a, b column) int { return a.pk - b.pk })
	for _, c := range keyed {
		t.keys = append(t.keys, c.name)
	}

	return t
}

// diffTable writes the deletes, updates and inserts of one table
func diffTable(ctx context.Context, conn *sql.Conn, stmt *sql.Stmt, t table) (int, error) {
	queries := []struct {
		code  engine.Code
		query string
	}{
		{engine.CodeDelete, deleteQuery(t)},
		{engine.CodeUpdate, updateQuery(t)},
		{engine.CodeInsert, insertQuery(t)},
	}

	written := 0
	for _, q := range queries {
		if q.query == "" {
			continue
		}

		n, err := copyChanges(ctx, conn, stmt, t.name, q.code, q.query)
		if err != nil {
			return written, engine.Errorf(Name, "compare table %s: %w", t.name, err)
		}
		written += n
	}

	return written, nil
}

func copyChanges(ctx context.Context, conn *sql.Conn, stmt *sql.Stmt, name string, code engine.Code, query string) (int, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var pk string
		if err := rows.Scan(&pk); err != nil {
			return n, err
		}
		if _, err := stmt.ExecContext(ctx, name, int(code), pk); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// keyExpr renders the primary key of alias as a comma separated SQL literal list
func keyExpr(alias string, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("quote(%s.%s)", alias, quoteIdent(k))
	}
	return strings.Join(parts, " || ',' || ")
}

func keyMatch(left, right string, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s.%s IS %s.%s", left, quoteIdent(k), right, quoteIdent(k))
	}
	return strings.Join(parts, " AND ")
}

func keyOrder(alias string, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = alias + "." + quoteIdent(k)
	}
	return strings.Join(parts, ", ")
}

func deleteQuery(t table) string {
	ident := quoteIdent(t.name)
	return fmt.Sprintf(
		`SELECT %s FROM main.%s AS b WHERE NOT EXISTS (SELECT 1 FROM cmp.%s AS c WHERE %s) ORDER BY %s`,
		keyExpr("b", t.keys), ident, ident, keyMatch("c", "b", t.keys), keyOrder("b", t.keys))
}

func insertQuery(t table) string {
	ident := quoteIdent(t.name)
	return fmt.Sprintf(
		`SELECT %s FROM cmp.%s AS c WHERE NOT EXISTS (SELECT 1 FROM main.%s AS b WHERE %s) ORDER BY %s`,
		keyExpr("c", t.keys), ident, ident, keyMatch("b", "c", t.keys), keyOrder("c", t.keys))
}

// updateQuery is empty for tables made of key columns only
func updateQuery(t table) string {
	if len(t.columns) == 0 {
		return ""
	}

	differs := make([]string, len(t.columns))
	for i, col := range t.columns {
		differs[i] = fmt.Sprintf("b.%s IS NOT c.%s", quoteIdent(col), quoteIdent(col))
	}

	ident := quoteIdent(t.name)
	return fmt.Sprintf(
		`SELECT %s FROM main.%s AS b JOIN cmp.%s AS c ON %s WHERE %s ORDER BY %s`,
		keyExpr("b", t.keys), ident, ident, keyMatch("b", "c", t.keys),
		strings.Join(differs, " OR "), keyOrder("b", t.keys))
}

// createArtifact creates an empty changeset file at path
func createArtifact(ctx context.Context, path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, engine.Errorf(Name, "changeset %s already exists", path)
	}

	db, err := sql.Open("sqlite", fileURI(path, "rwc"))
	if err != nil {
		return nil, engine.Errorf(Name, "create changeset: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, engine.Errorf(Name, "create changeset: %w", err)
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// openArtifact opens an existing changeset without creating one
func openArtifact(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, engine.Errorf(Name, "changeset %s does not exist", path)
		}
		return nil, engine.Errorf(Name, "open changeset: %w", err)
	}

	db, err := sql.Open("sqlite", fileURI(path, "ro"))
	if err != nil {
		return nil, engine.Errorf(Name, "open changeset: %w", err)
	}
	db.SetMaxOpenConns(1)

	return db, nil
}

// fileURI turns a filesystem path into a SQLite URI filename opened with
// mode (ro, rw or rwc). Characters such as '?', '#' and '%' in the path are
// percent-escaped so they cannot be read as URI parameters.
func fileURI(path, mode string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // drive letter paths
	}

	u := url.URL{Scheme: "file", Path: p, RawQuery: "mode=" + mode}
	return u.String()
}
