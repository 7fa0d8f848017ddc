package database

import (
	"context"
	"fmt"

	"github.com/platforma-dev/keepalive/application"
	"github.com/platforma-dev/keepalive/log"
)

// DefaultPingQuery is the query executed by PingAction when none is configured.
const DefaultPingQuery = "SELECT 1"

// PingAction returns a keep-alive action executing query, DefaultPingQuery when empty.
func (db *Database) PingAction(query string) application.Runner {
	if query == "" {
		query = DefaultPingQuery
	}

	return application.RunnerFunc(func(ctx context.Context) error {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("ping query failed: %w", err)
		}

		log.DebugContext(ctx, "database ping succeeded", "query", query)
		return nil
	})
}

// HeartbeatAction returns a keep-alive action writing the heartbeat row for label.
func (r *HeartbeatRepository) HeartbeatAction(label string) application.Runner {
	return application.RunnerFunc(func(ctx context.Context) error {
		return r.Touch(ctx, label)
	})
}
