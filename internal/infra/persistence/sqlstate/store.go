// Package sqlstate persists tables into a single key/value style SQL table,
// one row per table with the header and rows encoded as JSON. SQLite, Postgres
// and MySQL share the implementation and differ only by Dialect.
package sqlstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/go-sql-driver/mysql" // register mysql as a database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"inventario/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.TableStore = (*Store)(nil)

const (
	// DefaultSQLitePath is used when no sqlite path is configured.
	DefaultSQLitePath  = "inventario.db"
	defaultPostgresDSN = "postgres://localhost/inventario?sslmode=disable"
	defaultMySQLDSN    = "root@tcp(localhost:3306)/inventario"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the sql.Open hook, returning a restore func. Tests use
// it to inject databases for dialects that need a live server.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

// Store implements domain.TableStore over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
}

type payload struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewSQLite opens (creating if needed) a SQLite database file.
func NewSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return open(ctx, SQLite, path)
}

// NewPostgres opens a Postgres-backed store using dsn (falls back to a local default).
func NewPostgres(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	return open(ctx, Postgres, dsn)
}

// NewMySQL opens a MySQL-backed store using dsn (falls back to a local default).
func NewMySQL(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultMySQLDSN
	}
	return open(ctx, MySQL, dsn)
}

func open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	openMu.Lock()
	db, err := sqlOpen(d.DriverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	s, err := NewWithDB(ctx, db, d)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection pool and ensures the state table exists.
func NewWithDB(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping %s: %w", d.Name, err)
	}
	if _, err := db.ExecContext(ctx, d.CreateTable); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	return &Store{db: db, dialect: d}, nil
}

// Driver implements domain.TableStore.
func (s *Store) Driver() string { return s.dialect.Name }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// ReadTable implements domain.TableStore.
func (s *Store) ReadTable(ctx context.Context, name string) (domain.Table, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, s.dialect.Select, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Table{}, fmt.Errorf("%s: %w", name, domain.ErrTableNotFound)
	}
	if err != nil {
		return domain.Table{}, &domain.IOError{Op: "select table", Path: name, Err: err}
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Table{}, &domain.IOError{Op: "decode table", Path: name, Err: err}
	}
	return domain.Table{Name: name, Columns: p.Columns, Rows: p.Rows}, nil
}

// WriteTables implements domain.TableStore. All tables are upserted in one
// database transaction.
func (s *Store) WriteTables(ctx context.Context, tables ...domain.Table) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.IOError{Op: "begin", Path: s.dialect.Name, Err: err}
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, t := range tables {
		if t.Name == "" {
			return domain.ValidationError{Field: "table", Reason: "table name required"}
		}
		data, err := json.Marshal(payload{Columns: nonNil(t.Columns), Rows: normalize(t)})
		if err != nil {
			return &domain.IOError{Op: "encode table", Path: t.Name, Err: err}
		}
		if _, err := tx.ExecContext(ctx, s.dialect.Upsert, t.Name, string(data)); err != nil {
			return &domain.IOError{Op: "upsert table", Path: t.Name, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &domain.IOError{Op: "commit", Path: s.dialect.Name, Err: err}
	}
	return nil
}

func nonNil(cols []string) []string {
	if cols == nil {
		return []string{}
	}
	return cols
}

// normalize pads each row to the header width, matching what the csv driver reads back.
func normalize(t domain.Table) [][]string {
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]string, len(t.Columns))
		copy(row, r)
		rows = append(rows, row)
	}
	return rows
}
