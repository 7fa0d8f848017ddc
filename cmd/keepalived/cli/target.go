package cli

import (
	"fmt"

	"github.com/platforma-dev/keepalive/action"
	"github.com/platforma-dev/keepalive/application"
	"github.com/platforma-dev/keepalive/config"
	"github.com/platforma-dev/keepalive/database"
)

// target is the runtime form of a configured target.
type target struct {
	action application.Runner
	// migrate creates the heartbeat table. It is nil for targets that do not write.
	migrate application.Runner
	db      *database.Database
}

func (t *target) close() error {
	if t.db == nil {
		return nil
	}
	return t.db.Close()
}

func buildTarget(t config.Target) (*target, error) {
	switch {
	case t.SQL != nil:
		return buildSQLTarget(t.Label, t.SQL)
	case t.HTTP != nil:
		ping, err := action.NewHTTPPing(action.HTTPPingConfig{
			URL:                t.HTTP.URL,
			Method:             t.HTTP.Method,
			Timeout:            t.HTTP.Timeout,
			Headers:            t.HTTP.Headers,
			ExpectedStatus:     t.HTTP.ExpectedStatus,
			CAFile:             t.HTTP.CAFile,
			InsecureSkipVerify: t.HTTP.InsecureSkipVerify,
		})
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", t.Label, err)
		}
		return &target{action: ping}, nil
	default:
		return nil, fmt.Errorf("target %q: no action configured", t.Label)
	}
}

func buildSQLTarget(label string, cfg *config.SQLTarget) (*target, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := database.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", label, err)
	}

	if !cfg.Heartbeat {
		return &target{action: db.PingAction(cfg.Query), db: db}, nil
	}

	heartbeats := database.NewHeartbeatRepository(db)

	return &target{
		action:  heartbeats.HeartbeatAction(label),
		migrate: application.RunnerFunc(db.Migrate),
		db:      db,
	}, nil
}
