package database

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

const (
	markerUp   = "-- +migrate Up"
	markerDown = "-- +migrate Down"
	markerID   = "-- +migrate ID:"
)

var (
	errMissingUpSection  = errors.New("missing or empty Up section")
	errEmptyIDOverride   = errors.New("empty ID override")
	errDuplicateIDMarker = errors.New("duplicate ID override marker")
	errIDMarkerNotFirst  = errors.New("ID override marker must be the first marker")
)

type migrationLog struct {
	Repository  string    `db:"repository"`
	MigrationID string    `db:"id"`
	Timestamp   time.Time `db:"timestamp"`
}

// Migration represents a database migration with up and down SQL statements.
type Migration struct {
	ID         string
	Up         string
	Down       string
	repository string
}

func (m Migration) key() string {
	return m.repository + "/" + m.ID
}

type migrator interface {
	Migrations() fs.FS
}

// ParseMigrations reads every .sql file in the root of fsys, sorted by name.
// A file needs a "-- +migrate Up" section and may have a "-- +migrate Down" section.
// The ID is the file name without extension unless the first marker is
// "-- +migrate ID: <id>".
func ParseMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var filenames []string
	for _, entry := range entries {
		if !entry.IsDir() && path.Ext(entry.Name()) == ".sql" {
			filenames = append(filenames, entry.Name())
		}
	}
	slices.Sort(filenames)

	migrations := make([]Migration, 0, len(filenames))
	for _, filename := range filenames {
		data, err := fs.ReadFile(fsys, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		migration, err := parseMigration(strings.TrimSuffix(filename, ".sql"), string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse migration %s: %w", filename, err)
		}
		migrations = append(migrations, migration)
	}

	return migrations, nil
}

func parseMigration(id, content string) (Migration, error) {
	var up, down strings.Builder
	var section *strings.Builder

	markers := 0
	overridden := false
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, markerID):
			if overridden {
				return Migration{}, errDuplicateIDMarker
			}
			if markers > 0 {
				return Migration{}, errIDMarkerNotFirst
			}
			id = strings.TrimSpace(strings.TrimPrefix(trimmed, markerID))
			if id == "" {
				return Migration{}, errEmptyIDOverride
			}
			overridden = true
			markers++
		case trimmed == markerUp:
			section = &up
			markers++
		case trimmed == markerDown:
			section = &down
			markers++
		case section != nil:
			section.WriteString(line)
			section.WriteByte('\n')
		}
	}

	if err := scanner.Err(); err != nil {
		return Migration{}, fmt.Errorf("failed to read file: %w", err)
	}

	migration := Migration{
		ID:   id,
		Up:   strings.TrimSpace(up.String()),
		Down: strings.TrimSpace(down.String()),
	}
	if migration.Up == "" {
		return Migration{}, errMissingUpSection
	}

	return migration, nil
}
