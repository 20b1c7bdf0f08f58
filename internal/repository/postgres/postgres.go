// Package postgres implements the repository interfaces on PostgreSQL using
// the pgx driver through database/sql. The schema is owned by goose
// migrations embedded in the binary.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// gooseUp is a seam for tests that must not run real migrations.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New connects to PostgreSQL at dsn, verifies it is reachable and applies
// pending migrations. Any failure is returned so the caller can refuse to
// start.
func New(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := NewWithConn(conn)
	if err := db.RunMigrations(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return db, nil
}

// NewWithConn wraps an already opened pool. It does not migrate.
func NewWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// RunMigrations applies the embedded goose migrations.
func (db *DB) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseUp(ctx, db.conn, "migrations")
}

// Ping reports whether the database is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
