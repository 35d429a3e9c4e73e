// Package database wraps the pure-Go SQLite driver with the pragma
// profiles, schema migration, and transaction/health helpers shared by
// the market and risk stores.
package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed schemas/market_schema.sql
var marketSchema string

//go:embed schemas/risk_schema.sql
var riskSchema string

// Profile selects the pragma set for a database's workload.
type Profile string

const (
	// ProfileArchive - maximum safety for append-only records
	ProfileArchive Profile = "archive"
	// ProfileIngest - maximum speed for data that can be re-fetched upstream
	ProfileIngest Profile = "ingest"
	// ProfileStandard - balanced configuration for most databases
	ProfileStandard Profile = "standard"
)

// DB wraps one SQLite database connection.
type DB struct {
	conn    *sql.DB
	path    string
	profile Profile
	name    string // Database name for logging
}

// Config holds database configuration
type Config struct {
	Path    string
	Profile Profile
	Name    string // Friendly name for logging (e.g., "market", "risk")
}

// New opens the database, applies the profile pragmas and verifies the
// connection.
func New(cfg Config) (*DB, error) {
	// file: URIs are in-memory test databases, no directory to prepare
	if !strings.HasPrefix(cfg.Path, "file:") {
		absPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path to absolute: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		cfg.Path = absPath
	}

	if cfg.Profile == "" {
		cfg.Profile = ProfileStandard
	}

	conn, err := sql.Open("sqlite", connectionString(cfg.Path, cfg.Profile))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Name, err)
	}

	configurePool(conn, cfg.Profile)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Name, err)
	}

	return &DB{
		conn:    conn,
		path:    cfg.Path,
		profile: cfg.Profile,
		name:    cfg.Name,
	}, nil
}

// connectionString assembles the DSN with the profile's pragma set. WAL
// journaling is unconditional; the profiles trade durability against
// write speed.
func connectionString(path string, profile Profile) string {
	pragmas := []string{"journal_mode(WAL)"}

	switch profile {
	case ProfileArchive:
		// Fsync every write, never reclaim pages: signals are append-only
		pragmas = append(pragmas,
			"synchronous(FULL)",
			"auto_vacuum(NONE)",
		)
	case ProfileIngest:
		// Market data is replaced wholesale on every fetch and can always
		// be re-downloaded, so skip fsync entirely
		pragmas = append(pragmas,
			"synchronous(OFF)",
			"auto_vacuum(FULL)",
			"temp_store(MEMORY)",
		)
	case ProfileStandard:
		pragmas = append(pragmas,
			"synchronous(NORMAL)",
			"auto_vacuum(INCREMENTAL)",
			"temp_store(MEMORY)",
		)
	}

	pragmas = append(pragmas,
		"foreign_keys(1)",
		"wal_autocheckpoint(1000)",
		"cache_size(-64000)", // 64MB, negative means KB
	)

	var b strings.Builder
	b.WriteString(path)
	for i, p := range pragmas {
		if i == 0 {
			b.WriteString("?_pragma=")
		} else {
			b.WriteString("&_pragma=")
		}
		b.WriteString(p)
	}
	return b.String()
}

// configurePool sizes the connection pool for a long-running process.
func configurePool(conn *sql.DB, profile Profile) {
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(24 * time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)

	// The ingest database is only touched during scheduled fetches
	if profile == ProfileIngest {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(2)
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
// Used by repositories to execute queries
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Name returns the database name for logging
func (db *DB) Name() string {
	return db.name
}

// Migrate applies the database schema for this database.
// Schemas are embedded at build time and are the single source of truth;
// every statement is idempotent (CREATE ... IF NOT EXISTS) so Migrate is
// safe to call on every startup.
func (db *DB) Migrate() error {
	schemas := map[string]string{
		"market": marketSchema,
		"risk":   riskSchema,
	}

	schema, ok := schemas[db.name]
	if !ok {
		// Unknown database name, nothing to apply
		return nil
	}

	return WithTransaction(db.conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(schema); err != nil {
			return fmt.Errorf("failed to apply schema for %s: %w", db.name, err)
		}
		return nil
	})
}

// WithTransaction runs fn inside a transaction: commit on success,
// rollback on error or panic. A panic inside fn surfaces as an error
// rather than unwinding past the transaction.
func WithTransaction(db *sql.DB, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
			return
		}
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rollbackErr)
			} else {
				err = fmt.Errorf("transaction failed: %w", err)
			}
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	return fn(tx)
}

// Exec executes a query without returning rows
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// HealthCheck pings the database and runs a full integrity check. The
// integrity check is expensive, so this backs the /health endpoint and
// nothing on a hot path.
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed for %s: %w", db.name, err)
	}

	var result string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed for %s: %w", db.name, err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed for %s: %s", db.name, result)
	}
	return nil
}

// VacuumInto writes a consistent, defragmented copy of the database to destPath.
// Unlike copying the file directly it is safe while other connections hold the
// database open, which makes it the backbone of the backup service.
func (db *DB) VacuumInto(destPath string) error {
	if _, err := db.conn.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("vacuum into %s failed for %s: %w", destPath, db.name, err)
	}

	return nil
}

// Stats describes the on-disk footprint of one database.
type Stats struct {
	SizeBytes    int64
	WALSizeBytes int64
	PageCount    int64
}

// GetStats reads the current file sizes and page count.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	if fileInfo, err := os.Stat(db.path); err == nil {
		stats.SizeBytes = fileInfo.Size()
	}
	if fileInfo, err := os.Stat(db.path + "-wal"); err == nil {
		stats.WALSizeBytes = fileInfo.Size()
	}

	if err := db.conn.QueryRow("PRAGMA page_count").Scan(&stats.PageCount); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	return stats, nil
}
