// Package database opens SQL connections for keep-alive actions and migrates the
// tables those actions write to.
package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/platforma-dev/keepalive/log"
)

// Database is a connection with migration capabilities.
type Database struct {
	conn         *sqlx.DB
	repositories map[string]any
	migrators    map[string]migrator
}

// New connects to PostgreSQL with the given connection string.
func New(connection string) (*Database, error) {
	return Open("postgres", connection)
}

// Open connects using a registered driver name, "postgres" or "sqlite".
func Open(driver, connection string) (*Database, error) {
	db, err := sqlx.Connect(driver, connection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	return &Database{conn: db, repositories: make(map[string]any), migrators: make(map[string]migrator)}, nil
}

// Connection returns the underlying sqlx database connection.
func (db *Database) Connection() *sqlx.DB {
	return db.conn
}

// Close closes the connection pool.
func (db *Database) Close() error {
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// RegisterRepository registers a repository in the database.
// If repository implements migrator interface, it will migrate when `Migrate` is called.
func (db *Database) RegisterRepository(name string, repository any) {
	db.repositories[name] = repository

	if migr, ok := repository.(migrator); ok {
		db.migrators[name] = migr
	}
}

// Migrate applies pending migrations of registered repositories. A failing migration
// reverts the ones applied in the same call.
func (db *Database) Migrate(ctx context.Context) error {
	if err := db.ensureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to select migrations state: %w", err)
	}

	pending := []Migration{}
	for name, migrator := range db.migrators {
		parsed, err := ParseMigrations(migrator.Migrations())
		if err != nil {
			return fmt.Errorf("failed to parse migrations for %s: %w", name, err)
		}

		for _, migr := range parsed {
			migr.repository = name
			if _, done := applied[migr.key()]; done {
				log.DebugContext(ctx, "migration skipped", "repository", name, "migrationId", migr.ID)
				continue
			}
			pending = append(pending, migr)
		}
	}

	return db.applyMigrations(ctx, pending)
}
