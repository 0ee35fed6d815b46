// Package store is the single-writer, reader-concurrent relational store:
// tables, foreign keys, and the derived-view SQL that expresses
// "fully traced", "passed-covered", "fully covered" and "invalid"
// declaratively. See schema.sql for the full table and view definitions.
package store

import (
	"context"
	_ "embed"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/daedaleanai/mantra/errkind"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a *sql.DB opened against the traceability schema. Its methods
// are grouped across several files (requirements.go, traces.go, ...) but
// share this single connection pool, since SQLite tolerates one writer at
// a time and the store's contract is itself single-writer.
type DB struct {
	*sql.DB
}

// DefaultURL matches the original implementation's MANTRA_DB default,
// translated from a SQLx connection string into a modernc.org/sqlite DSN.
const DefaultURL = "mantra.db"

// Open connects to the database at url (a filesystem path, or the special
// value ":memory:"), creating the file and its parent directory if needed,
// and runs schema migrations.
func Open(ctx context.Context, url string) (*DB, error) {
	dsn := strings.TrimPrefix(url, "sqlite://")
	if dsn == "" {
		dsn = DefaultURL
	}
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errkind.Wrap(errkind.Connect, err, "could not create database directory %q", dir)
			}
		}
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errkind.Wrap(errkind.Connect, err, "could not open database %q", dsn)
	}
	sqlDB.SetMaxOpenConns(1) // single-writer contract; readers use a separate handle if needed

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, errkind.Wrap(errkind.Connect, err, "could not connect to database %q", dsn)
	}

	db := &DB{DB: sqlDB}
	if err := db.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return errkind.Wrap(errkind.Migrate, err, "failed to apply schema")
	}
	return nil
}

// isForeignKeyViolation recognizes modernc.org/sqlite's foreign key
// constraint failure message, since the driver surfaces it as a plain
// *sqlite.Error rather than a typed sentinel.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
