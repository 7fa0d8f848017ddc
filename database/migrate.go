package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/platforma-dev/keepalive/log"
)

const (
	migrationTable      = "keepalive_migrations"
	migrationRepository = "keepalive_migration"
)

var migrationTableMigration = Migration{
	ID: "init",
	Up: `CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
	repository TEXT NOT NULL,
	id TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	PRIMARY KEY (repository, id)
)`,
	Down:       `DROP TABLE IF EXISTS ` + migrationTable,
	repository: migrationRepository,
}

func (db *Database) ensureMigrationTable(ctx context.Context) error {
	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		log.InfoContext(ctx, "migrations log table does not exist yet")
	}

	if _, done := applied[migrationTableMigration.key()]; done {
		return nil
	}

	if err := db.execute(ctx, migrationTableMigration.Up); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	if err := db.saveMigrationLog(ctx, migrationTableMigration); err != nil {
		return err
	}

	log.InfoContext(ctx, "migration applied", "repository", migrationRepository, "migrationId", migrationTableMigration.ID)
	return nil
}

// appliedMigrations returns the keys of logged migrations.
func (db *Database) appliedMigrations(ctx context.Context) (map[string]struct{}, error) {
	var logs []migrationLog
	err := db.conn.SelectContext(ctx, &logs, "SELECT repository, id FROM "+migrationTable)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration logs: %w", err)
	}

	applied := make(map[string]struct{}, len(logs))
	for _, l := range logs {
		applied[Migration{ID: l.MigrationID, repository: l.Repository}.key()] = struct{}{}
	}

	return applied, nil
}

func (db *Database) applyMigrations(ctx context.Context, migrations []Migration) error {
	applied := []Migration{}
	for _, migr := range migrations {
		if err := db.execute(ctx, migr.Up); err != nil {
			if revertErr := db.revertMigrations(ctx, applied); revertErr != nil {
				log.ErrorContext(ctx, "got error(s) trying to revert migrations", "error", revertErr)
			}
			return fmt.Errorf("failed to apply migration %s of %s: %w", migr.ID, migr.repository, err)
		}

		log.InfoContext(ctx, "migration applied", "repository", migr.repository, "migrationId", migr.ID)
		applied = append(applied, migr)
	}

	var logErr error
	for _, migr := range applied {
		logErr = errors.Join(logErr, db.saveMigrationLog(ctx, migr))
	}
	if logErr != nil {
		log.ErrorContext(ctx, "got error(s) trying to save migration logs", "error", logErr)
	}

	return nil
}

func (db *Database) revertMigrations(ctx context.Context, migrations []Migration) error {
	var revertErr error
	for _, migr := range slices.Backward(migrations) {
		if migr.Down == "" {
			continue
		}

		if err := db.execute(ctx, migr.Down); err != nil {
			revertErr = errors.Join(revertErr, fmt.Errorf("failed to revert migration %s: %w", migr.ID, err))
		}
	}

	return revertErr
}

func (db *Database) saveMigrationLog(ctx context.Context, migr Migration) error {
	_, err := db.conn.NamedExecContext(ctx,
		"INSERT INTO "+migrationTable+" (repository, id, timestamp) VALUES (:repository, :id, :timestamp)",
		migrationLog{Repository: migr.repository, MigrationID: migr.ID, Timestamp: time.Now().UTC()},
	)
	if err != nil {
		return fmt.Errorf("failed to save migration log %s: %w", migr.key(), err)
	}
	return nil
}

func (db *Database) execute(ctx context.Context, query string) error {
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}
