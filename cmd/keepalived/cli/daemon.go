package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/platforma-dev/keepalive/admin"
	"github.com/platforma-dev/keepalive/application"
	"github.com/platforma-dev/keepalive/config"
	"github.com/platforma-dev/keepalive/httpserver"
	"github.com/platforma-dev/keepalive/keepalive"
	"github.com/platforma-dev/keepalive/log"
	"github.com/platforma-dev/keepalive/scheduler"
)

const (
	adminPrefix = "/admin"
	healthPath  = "/health"
)

// daemon is one keep-alive scheduler per target, their warm-up jobs and the host
// HTTP server whose requests count as activity, run as application services.
type daemon struct {
	app        *application.Application
	server     *httpserver.HTTPServer
	schedulers []*keepalive.Scheduler
	targets    []*target
}

// newDaemon connects to SQL targets and wires every service. Firing events go to events
// when enabled in cfg.
func newDaemon(cfg *config.Config, events io.Writer) (*daemon, error) {
	d := &daemon{
		app:    application.New(),
		server: httpserver.New(cfg.Server.Port, cfg.Server.ShutdownTimeout),
	}

	d.server.Use(log.NewTraceIDMiddleware(nil, ""), httpserver.NewRecoverMiddleware())

	var eventLogger *log.WideEventLogger
	if cfg.Log.Events.Enabled {
		sampler := log.NewDefaultSampler(cfg.Log.Events.SlowThreshold, cfg.Log.Events.KeepAttemptsAtLeast, cfg.Log.Events.RandomKeepRate)
		eventLogger = log.NewWideEventLogger(events, sampler, cfg.Log.Format, nil)
	}

	// Health and admin traffic never count as activity, whatever the configured list.
	ignorePaths := append([]string{adminPrefix + "/", healthPath}, cfg.Server.IgnorePaths...)

	for _, tc := range cfg.Targets {
		if err := d.addTarget(tc, eventLogger, ignorePaths); err != nil {
			d.close()
			return nil, err
		}
	}

	d.server.Handle("GET "+healthPath, application.NewHealthCheckHandler(d.app))

	if cfg.Admin.Enabled {
		if cfg.Admin.TokenHash == "" {
			log.Warn("admin API is enabled without a token hash and accepts unauthenticated requests")
		}

		schedulers := make([]admin.Scheduler, 0, len(d.schedulers))
		for _, s := range d.schedulers {
			schedulers = append(schedulers, s)
		}

		adminGroup := admin.New(cfg.Admin.TokenHash, schedulers...).HandleGroup

		// Audit events wrap authentication so rejected calls are recorded too.
		if eventLogger != nil {
			audited := httpserver.NewHandlerGroup()
			audited.Use(log.NewWideEventMiddleware(eventLogger, "keepalived.admin"))
			audited.Handle("/", adminGroup)
			adminGroup = audited
		}

		d.server.HandleGroup(adminPrefix, adminGroup)
	}

	d.app.RegisterService("http", d.server)

	return d, nil
}

func (d *daemon) addTarget(tc config.Target, eventLogger *log.WideEventLogger, ignorePaths []string) error {
	t, err := buildTarget(tc)
	if err != nil {
		return err
	}
	d.targets = append(d.targets, t)

	if t.migrate != nil {
		d.app.OnStart(t.migrate, application.StartupTaskConfig{Name: "migrate " + tc.Label, AbortOnError: true})
	}

	kaCfg, err := tc.KeepAliveConfig(t.action)
	if err != nil {
		return fmt.Errorf("target %q: %w", tc.Label, err)
	}
	kaCfg.EventLogger = eventLogger

	s, err := keepalive.New(kaCfg)
	if err != nil {
		return fmt.Errorf("target %q: %w", tc.Label, err)
	}
	// Armed by Run once startup tasks such as migrations have succeeded.
	s.Stop()
	d.schedulers = append(d.schedulers, s)

	d.server.Use(s.Middleware(ignorePaths...))
	d.app.RegisterService("keepalive:"+tc.Label, s)

	if tc.Warmup != "" {
		warmup, err := scheduler.New("warmup:"+tc.Label, tc.Warmup, application.RunnerFunc(s.Trigger))
		if err != nil {
			return fmt.Errorf("target %q: %w", tc.Label, err)
		}
		d.app.RegisterService(warmup.Name(), warmup)
	}

	return nil
}

// run blocks until ctx is canceled or the process is signaled, then releases connections.
func (d *daemon) run(ctx context.Context) error {
	defer d.close()

	return d.app.Run(ctx)
}

func (d *daemon) close() {
	for _, s := range d.schedulers {
		s.Stop()
	}

	var errs []error
	for _, t := range d.targets {
		errs = append(errs, t.close())
	}

	if err := errors.Join(errs...); err != nil {
		log.Error("failed to close targets", "error", err)
	}
}
