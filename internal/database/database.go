package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mixelka/codewatch/internal/secret"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB wraps sqlx.DB
type DB struct {
	*sqlx.DB
	driver string
	box    *secret.Box
}

// Option configures a DB
type Option func(*DB)

// WithSecretBox seals credential columns with box
func WithSecretBox(box *secret.Box) Option {
	return func(db *DB) {
		db.box = box
	}
}

// New creates a new database connection
func New(driver, dsn string, opts ...Option) (*DB, error) {
	var (
		conn *sqlx.DB
		err  error
	)

	switch driver {
	case DriverSQLite:
		conn, err = connectSQLite(dsn)
	case DriverPostgres:
		conn, err = sqlx.Connect("postgres", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: conn, driver: driver}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

func connectSQLite(path string) (*sqlx.DB, error) {
	if path != ":memory:" {
		// Ensure directory exists
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Connect with WAL mode and foreign keys enabled
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Single writer; also keeps one shared database for ":memory:"
	db.SetMaxOpenConns(1)
	return db, nil
}

// Migrate runs database migrations
func (db *DB) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if db.driver == DriverPostgres {
		schema = postgresSchema
	}

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
