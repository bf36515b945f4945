// Copyright 2025 LifeReady
//
// Package database provides connection pooling, health checks, and
// migration support shared by every repository in internal/*.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/lifeready/core/internal/coreerr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Options configures connection pool limits for NewClient. Zero values
// fall back to the defaults below.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// Client represents a database client with connection pooling.
type Client struct {
	db     *sql.DB
	logger *log.Logger
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*Client)

// WithLogger sets a custom logger for the client.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new database client with connection pooling.
func NewClient(databaseURL string, opts Options, clientOpts ...ClientOption) (*Client, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 25
	}
	maxIdle := opts.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 5
	}
	idleTime := opts.ConnMaxIdleTime
	if idleTime == 0 {
		idleTime = 5 * time.Minute
	}
	lifetime := opts.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = time.Hour
	}

	client := &Client{
		logger: log.New(log.Writer(), "[database] ", log.LstdFlags),
	}
	for _, opt := range clientOpts {
		opt(client)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(idleTime)
	db.SetConnMaxLifetime(lifetime)

	client.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client.logger.Printf("connected to database (max_open=%d, max_idle=%d)", maxOpen, maxIdle)

	return client, nil
}

// DB returns the underlying *sql.DB for direct access
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.db != nil {
		c.logger.Println("Closing database connection")
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Health returns database health information. A failed ping is reported
// in the returned status rather than as an error, so callers can expose
// it as a degraded-but-responding health check rather than a hard
// failure; a failed version query leaves Version empty. Health never
// returns a non-nil error.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{
		CheckedAt: time.Now(),
	}

	// Check connection
	if err := c.db.PingContext(ctx); err != nil {
		status.Healthy = false
		status.Error = err.Error()
		return status, nil
	}

	// Get connection pool stats
	stats := c.db.Stats()
	status.Healthy = true
	status.OpenConnections = stats.OpenConnections
	status.InUse = stats.InUse
	status.Idle = stats.Idle
	status.WaitCount = stats.WaitCount
	status.WaitDuration = stats.WaitDuration
	status.MaxOpenConnections = stats.MaxOpenConnections

	// Get database version
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err == nil {
		status.Version = version
	}

	return status, nil
}

// HealthStatus represents the health status of the database
type HealthStatus struct {
	Healthy            bool          `json:"healthy"`
	Error              string        `json:"error,omitempty"`
	Version            string        `json:"version,omitempty"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
	MaxOpenConnections int           `json:"max_open_connections"`
	CheckedAt          time.Time     `json:"checked_at"`
}

// ============================================================================
// MIGRATION SUPPORT
// ============================================================================

// MigrateUp runs all pending database migrations.
func (c *Client) MigrateUp(ctx context.Context) error {
	c.logger.Println("Running database migrations...")

	migrations, err := c.getMigrations()
	if err != nil {
		return coreerr.Wrap(coreerr.KindInternal, err, "list embedded migrations")
	}

	applied, err := c.getAppliedMigrations(ctx)
	if err != nil {
		// schema_migrations itself doesn't exist yet; the first migration
		// creates it, so an empty applied set is the correct starting point.
		if !strings.Contains(err.Error(), "does not exist") {
			return coreerr.Wrap(coreerr.KindInternal, err, "list applied migrations")
		}
		applied = make(map[string]bool)
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			c.logger.Printf("  Skipping %s (already applied)", migration.Version)
			continue
		}

		c.logger.Printf("  Applying %s...", migration.Version)
		if err := c.applyMigration(ctx, migration); err != nil {
			return coreerr.Wrap(coreerr.KindInternal, err, fmt.Sprintf("apply migration %s", migration.Version))
		}
		c.logger.Printf("  Applied %s successfully", migration.Version)
	}

	c.logger.Println("Migrations complete")
	return nil
}

// Migration represents a database migration
type Migration struct {
	Version  string
	Filename string
	SQL      string
}

// getMigrations reads all migration files from the embedded filesystem
func (c *Client) getMigrations() ([]Migration, error) {
	var migrations []Migration

	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".sql") {
			return nil
		}

		content, err := migrationsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		// Extract version from filename (e.g., "0001_initial_schema.sql" -> "0001_initial_schema")
		filename := d.Name()
		version := strings.TrimSuffix(filename, ".sql")

		migrations = append(migrations, Migration{
			Version:  version,
			Filename: filename,
			SQL:      string(content),
		})
		return nil
	})

	if err != nil {
		return nil, err
	}

	// Sort by version
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// getAppliedMigrations returns a map of already applied migration versions
func (c *Client) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// applyMigration applies a single migration in a transaction. The
// migration SQL is expected to record its own version in
// schema_migrations (via INSERT ... ON CONFLICT DO NOTHING), including
// for the first migration, which also creates that table.
func (c *Client) applyMigration(ctx context.Context, migration Migration) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return coreerr.Wrap(coreerr.KindInternal, err, "begin migration transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return coreerr.Wrap(coreerr.KindInternal, err, fmt.Sprintf("execute migration %s", migration.Version))
	}

	if err := tx.Commit(); err != nil {
		return coreerr.Wrap(coreerr.KindInternal, err, "commit migration transaction")
	}
	return nil
}

// MigrationStatus returns the status of all migrations, for an external
// operator surface (a CLI or admin endpoint) to report on; this module
// itself only ever calls MigrateUp.
func (c *Client) MigrationStatus(ctx context.Context) ([]MigrationInfo, error) {
	migrations, err := c.getMigrations()
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindInternal, err, "list embedded migrations")
	}

	applied, err := c.getAppliedMigrations(ctx)
	if err != nil {
		if !strings.Contains(err.Error(), "does not exist") {
			return nil, coreerr.Wrap(coreerr.KindInternal, err, "list applied migrations")
		}
		applied = make(map[string]bool)
	}

	status := make([]MigrationInfo, 0, len(migrations))
	for _, m := range migrations {
		status = append(status, MigrationInfo{
			Version: m.Version,
			Applied: applied[m.Version],
		})
	}

	return status, nil
}

// MigrationInfo represents the status of a single migration
type MigrationInfo struct {
	Version string `json:"version"`
	Applied bool   `json:"applied"`
}

// ============================================================================
// QUERY HELPERS
// ============================================================================
//
// There is no Client-level BeginTx/Tx wrapper here: internal/audit needs
// SERIALIZABLE isolation for its hash-chain append, while internal/casefsm
// and internal/export start plain transactions, so every repository calls
// DB().BeginTx directly with whatever *sql.TxOptions its own invariant
// requires instead of going through a one-size options wrapper.

// ExecContext executes a query that doesn't return rows
func (c *Client) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows
func (c *Client) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns at most one row
func (c *Client) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}
