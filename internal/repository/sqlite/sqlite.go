// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code, so the binary builds anywhere Go does.
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryRowContext / db.ExecContext  → runs queries
//  3. row.Scan(&field1, &field2)           → reads results into Go variables
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// memoryDSN is the data source name for a throwaway in-memory database.
const memoryDSN = ":memory:"

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements repository.UserRepository (see user.go).
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath, verifies the connection and runs
// migrations.
//
// dbPath examples:
//   - "data/auth.db" → file-based database (persistent)
//   - ":memory:"     → in-memory database (tests)
//
// sql.Open does not connect; Ping forces a real connection so a bad path or
// permission problem surfaces here, at startup, instead of on the first
// request.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database. Pin the
	// pool to one connection so all callers see the same tables.
	if dbPath == memoryDSN {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn appends the connection pragmas. The driver runs them on every new
// connection in the pool, in order: busy_timeout comes first so writers wait
// for the lock instead of failing with SQLITE_BUSY, then WAL lets readers
// proceed while a write is in flight.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run on
// every startup.
//
// The UNIQUE constraint on email is what makes signup race-free: the
// application-level lookup is only a fast path for a friendly error.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	return nil
}
