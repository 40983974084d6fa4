// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// The JSON files are the default format because the desktop app wrote them.
// SQLite is the alternative for users who want a single file with real
// transactions: a snapshot save replaces the metrics row AND the goal rows in
// one transaction, so a crash never leaves goals from one save next to water
// from another.
//
// Select it with `storage: sqlite` in the config file or FITNESS_STORAGE=sqlite.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code: no C compiler needed, works everywhere Go works.
//
// DATABASE/SQL OVERVIEW:
// Go's standard library provides "database/sql": a generic interface for SQL databases.
// It works with any database through "drivers" (SQLite, Postgres, MySQL, etc.).
// Key types:
//   - sql.DB     : a connection pool (NOT a single connection!)
//   - sql.Tx     : a transaction
//   - sql.Row    : a single result row
//   - sql.Rows   : multiple result rows (must be closed!)
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. rows.Scan(&field1, &field2)          → reads results into Go variables
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"

	// BLANK IMPORT:
	// The underscore import `_ "modernc.org/sqlite"` is a "side-effect only" import.
	// It doesn't give us any symbols to use directly. Instead, the sqlite package's
	// init() function registers itself with database/sql as a driver named "sqlite".
	// After this import, sql.Open("sqlite", ...) knows how to talk to SQLite.
	//
	// This is Go's plugin pattern: database drivers register themselves at init time.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
//
// WHY WRAP sql.DB IN A STRUCT?
// 1. We can attach methods to it (LoadSnapshot, SaveCredentials, etc.)
// 2. It implements repository.Store, the same contract as the JSON backend
// 3. We control the lifecycle (New creates it, Close destroys it)
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/fitness.db"     → file-based database (persistent)
//   - ":memory:"            → in-memory database (great for tests, lost on close)
//
// CONNECTION POOL:
// sql.Open() does NOT actually open a connection: it just creates a pool manager.
// The first real connection happens when you run your first query.
// We call db.Ping() to force an immediate connection and verify it works.
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	// Open a connection pool to the SQLite database.
	// "sqlite" is the driver name registered by the blank import above.
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping verifies the connection actually works.
	// Without this, a bad path or permissions issue would only surface
	// on the first query, which is much harder to debug.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// PRAGMA STATEMENTS:
	// SQLite has special "PRAGMA" commands that configure its behaviour.
	// These run once at connection time.

	// WAL (Write-Ahead Logging) mode:
	// Default SQLite locks the entire database during writes.
	// WAL mode lets the CLI read the file while the server is writing it.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards compatibility).
	// We turn them on so goal rows cannot outlive the snapshot row they belong to.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	// SQLite has a single writer anyway. One connection also means every
	// query sees the same ":memory:" database; with a pool each connection
	// would get its own empty one.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, logger: logger}

	// Run database migrations to create/update tables
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
//
// ALWAYS DEFER CLOSE:
// Wherever you call New(), immediately defer Close():
//
//	db, err := sqlite.New("data/fitness.db", logger)
//	if err != nil { ... }
//	defer db.Close()
//
// This ensures the connection is cleaned up even if a panic occurs.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is safe to run on every start. Column additions
// go through addColumnIfNotExists so older files are upgraded in place.
func (db *DB) migrate() error {
	// Phase 1: credentials. username is the primary key, so a second
	// registration of the same name replaces the row.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS credentials (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating credentials table: %w", err)
	}

	// Phase 1: the snapshot. Only the latest one is kept, so the table holds
	// at most one row (id = 1).
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot (
			id             INTEGER PRIMARY KEY CHECK (id = 1),
			username       TEXT NOT NULL,
			water_intake   REAL NOT NULL DEFAULT 0,
			total_calories REAL NOT NULL DEFAULT 0,
			steps          REAL NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("creating snapshot table: %w", err)
	}

	// Phase 1: goals, ordered by position (insertion order).
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS goals (
			snapshot_id INTEGER NOT NULL REFERENCES snapshot(id) ON DELETE CASCADE,
			position    INTEGER NOT NULL,
			description TEXT NOT NULL,
			value       REAL NOT NULL,
			period      TEXT NOT NULL,
			advice      TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (snapshot_id, position)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating goals table: %w", err)
	}

	// Phase 2: remember when the snapshot was last written. Files created
	// before this column existed pick it up on the next start.
	if err := db.addColumnIfNotExists("snapshot", "updated_at",
		"DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP"); err != nil {
		return fmt.Errorf("adding updated_at to snapshot: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent: safe to run multiple times.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
