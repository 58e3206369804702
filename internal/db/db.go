// Package db owns the SQLite database that backs session memory and content recall.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// Register sqlite-vec as an auto-extension so every SQLite connection
	// opened by this process has the vec0 virtual table module available.
	vec.Auto()
}

const (
	// DefaultEmbeddingDimension is used when creating vec0 virtual tables.
	// nomic-embed-text and text-embedding-004 produce 768-dim vectors;
	// text-embedding-3-small produces 1536.
	DefaultEmbeddingDimension = 768
)

// DB wraps a *sqlx.DB and exposes helpers.
type DB struct {
	conn      *sqlx.DB
	vectorsOK bool
}

// Open opens (or creates) the SQLite database at path and applies migrations.
func Open(path string) (*DB, error) {
	return OpenWithDimension(path, DefaultEmbeddingDimension)
}

// OpenWithDimension is Open with an explicit embedding dimension for the
// vector tables. The dimension only matters the first time the tables are created.
func OpenWithDimension(path string, dimension int) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", absPath)
	conn, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single writer, multiple readers.
	conn.SetMaxOpenConns(1)

	if err := applyMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}
	// Non-fatal: sqlite-vec may not be available in all build configurations.
	// Content recall degrades to no results.
	vectorsOK := applyVectorTables(conn, dimension) == nil

	return &DB{conn: conn, vectorsOK: vectorsOK}, nil
}

// Conn returns the underlying *sql.DB.
func (d *DB) Conn() *sql.DB {
	return d.conn.DB
}

// X returns the sqlx handle for struct scanning.
func (d *DB) X() *sqlx.DB {
	return d.conn
}

// VectorsAvailable reports whether the vec0 tables were created.
func (d *DB) VectorsAvailable() bool {
	return d.vectorsOK
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Ping checks the connection is live.
func (d *DB) Ping() error {
	return d.conn.Ping()
}
