package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"
)

//go:embed migrations/heartbeat/*.sql
var heartbeatMigrations embed.FS

// HeartbeatRepository stores the last keep-alive write per label. Some managed
// databases only count writes as activity, a SELECT is not enough for them.
type HeartbeatRepository struct {
	db *Database
}

// Heartbeat is a row of the heartbeat table.
type Heartbeat struct {
	Label     string    `db:"label"`
	TouchedAt time.Time `db:"touched_at"`
	Touches   int64     `db:"touches"`
}

// NewHeartbeatRepository creates the repository and registers it for migration.
func NewHeartbeatRepository(db *Database) *HeartbeatRepository {
	repo := &HeartbeatRepository{db: db}
	db.RegisterRepository("keepalive_heartbeat", repo)
	return repo
}

// Migrations returns the migrations creating the heartbeat table.
func (r *HeartbeatRepository) Migrations() fs.FS {
	m, _ := fs.Sub(heartbeatMigrations, "migrations/heartbeat")
	return m
}

// Touch upserts the heartbeat row for label.
func (r *HeartbeatRepository) Touch(ctx context.Context, label string) error {
	conn := r.db.Connection()

	query := conn.Rebind(`INSERT INTO keepalive_heartbeats (label, touched_at, touches) VALUES (?, ?, 1)
ON CONFLICT (label) DO UPDATE SET touched_at = excluded.touched_at, touches = keepalive_heartbeats.touches + 1`)

	if _, err := conn.ExecContext(ctx, query, label, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to touch heartbeat %q: %w", label, err)
	}

	return nil
}

// Touches returns how many times label was touched.
func (r *HeartbeatRepository) Touches(ctx context.Context, label string) (int64, error) {
	conn := r.db.Connection()

	var touches int64
	err := conn.GetContext(ctx, &touches, conn.Rebind("SELECT touches FROM keepalive_heartbeats WHERE label = ?"), label)
	if err != nil {
		return 0, fmt.Errorf("failed to get heartbeat %q: %w", label, err)
	}

	return touches, nil
}
