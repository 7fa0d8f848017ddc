// Package scheduler runs keep-alive warm-ups on a cron schedule, for example to wake a
// database shortly before business hours regardless of recent traffic.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	cron "github.com/pardnchiu/go-scheduler"

	"github.com/platforma-dev/keepalive/application"
	"github.com/platforma-dev/keepalive/log"
)

// Scheduler executes a warm-up runner based on a cron expression.
type Scheduler struct {
	name     string             // Warm-up name used in logs
	cronExpr string             // The cron expression
	runner   application.Runner // The runner to execute periodically
}

// New creates a warm-up Scheduler. The runner is usually a keep-alive Trigger or action.
//
// Supported cron formats:
//   - Standard 5-field cron: "minute hour day month weekday" (e.g., "0 9 * * MON-FRI")
//   - Custom descriptors: @yearly, @monthly, @weekly, @daily, @hourly
//   - Interval syntax: @every 5m, @every 2h, @every 30s
//
// Examples:
//   - "45 8 * * MON-FRI" - wake the dependency at 8:45 on weekdays
//   - "@every 10m" - keep a cold dependency warm every 10 minutes
//
// Schedules are evaluated in UTC. Returns an error if the cron expression is invalid.
func New(name, cronExpr string, runner application.Runner) (*Scheduler, error) {
	// Check for empty expression first to avoid library panic
	if cronExpr == "" {
		return nil, fmt.Errorf("invalid cron expression %q for warm-up %q: expression cannot be empty", cronExpr, name)
	}

	if runner == nil {
		return nil, fmt.Errorf("warm-up %q: runner is required", name)
	}

	testScheduler, err := cron.New(cron.Config{Location: time.UTC})
	if err != nil {
		return nil, fmt.Errorf("failed to create cron validator: %w", err)
	}

	_, err = testScheduler.Add(cronExpr, func() {})
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q for warm-up %q: %w", cronExpr, name, err)
	}

	return &Scheduler{
		name:     name,
		cronExpr: cronExpr,
		runner:   runner,
	}, nil
}

// Name returns the warm-up name.
func (s *Scheduler) Name() string {
	return s.name
}

// Run starts the cron schedule and executes the runner until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	cronScheduler, err := cron.New(cron.Config{Location: time.UTC})
	if err != nil {
		return fmt.Errorf("failed to create cron scheduler: %w", err)
	}

	_, err = cronScheduler.Add(s.cronExpr, func() error {
		runCtx := context.WithValue(ctx, log.TraceIDKey, uuid.NewString())
		runCtx = context.WithValue(runCtx, log.WarmupKey, s.name)
		log.InfoContext(runCtx, "warm-up started")

		err := s.runner.Run(runCtx)
		if err != nil {
			log.ErrorContext(runCtx, "error in warm-up", "error", err)
		}

		log.InfoContext(runCtx, "warm-up finished")
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to add cron task: %w", err)
	}

	cronScheduler.Start()

	<-ctx.Done()

	// Stop waits for running warm-ups to complete
	stopCtx := cronScheduler.Stop()
	<-stopCtx.Done()

	return fmt.Errorf("warm-up %q context canceled: %w", s.name, ctx.Err())
}
