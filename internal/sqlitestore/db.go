// Package sqlitestore implements domain.Storage over a single-file SQLite
// database, grounded on infra/sqlite's migration-as-string-slice shape and
// its ON CONFLICT upsert style, using the teacher's own pure-Go driver
// choice (modernc.org/sqlite avoids a CGO dependency for items and reviews,
// same as it does for regions and marketplace listings).
package sqlitestore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a *sql.DB opened against a SQLite file, with the review-core
// schema applied.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path, enables WAL mode,
// and applies every migration in order. Migrations are idempotent
// (CREATE TABLE IF NOT EXISTS) so Open is safe to call on every startup.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1) // modernc.org/sqlite: one writer avoids SQLITE_BUSY

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("sqlitestore: pragma %q: %w", pragma, err)
		}
	}

	db := &DB{db: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// migrate runs every statement in Migrations() in order.
func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlitestore: migration %q: %w", stmt, err)
		}
	}
	return nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.db.Close()
}
