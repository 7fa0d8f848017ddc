package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platforma-dev/keepalive/application"
	"github.com/platforma-dev/keepalive/keepalive"
	"github.com/platforma-dev/keepalive/log"
	"github.com/platforma-dev/keepalive/scheduler"
)

func TestSuccessRun(t *testing.T) {
	t.Parallel()

	var counter atomic.Int32
	s, err := scheduler.New("warm", "@every 1s", application.RunnerFunc(func(ctx context.Context) error {
		counter.Add(1)
		return nil
	}))
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)

	time.Sleep(3500 * time.Millisecond)

	if count := counter.Load(); count < 2 || count > 4 {
		t.Errorf("expected 3 executions (±1), got %v", count)
	}
}

func TestErrorRunKeepsSchedule(t *testing.T) {
	t.Parallel()

	var counter atomic.Int32
	s, err := scheduler.New("warm", "@every 1s", application.RunnerFunc(func(ctx context.Context) error {
		counter.Add(1)
		return errors.New("database is paused")
	}))
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)

	time.Sleep(2500 * time.Millisecond)

	if count := counter.Load(); count < 2 {
		t.Errorf("expected failing warm-ups to keep running, got %v", count)
	}
}

func TestContextDecline(t *testing.T) {
	t.Parallel()

	var counter atomic.Int32
	s, err := scheduler.New("warm", "@every 1s", application.RunnerFunc(func(ctx context.Context) error {
		counter.Add(1)
		return nil
	}))
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(1500 * time.Millisecond)
		cancel()
	}()

	runErr := s.Run(ctx)

	if !errors.Is(runErr, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", runErr)
	}

	if counter.Load() != 1 {
		t.Errorf("wrong counter value. expected %v, got %v", 1, counter.Load())
	}
}

func TestRunPassesWarmupContext(t *testing.T) {
	t.Parallel()

	names := make(chan string, 1)
	s, err := scheduler.New("morning", "@every 1s", application.RunnerFunc(func(ctx context.Context) error {
		name, _ := ctx.Value(log.WarmupKey).(string)
		traceID, _ := ctx.Value(log.TraceIDKey).(string)
		if traceID == "" {
			name = ""
		}

		select {
		case names <- name:
		default:
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)

	select {
	case name := <-names:
		if name != "morning" {
			t.Errorf("expected warm-up name and trace id in context, got %q", name)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("warm-up did not run")
	}
}

func TestWarmupTriggersKeepAlive(t *testing.T) {
	t.Parallel()

	var pings atomic.Int32
	ka, err := keepalive.New(keepalive.Config{
		InactivityLimit: time.Hour,
		Action: application.RunnerFunc(func(context.Context) error {
			pings.Add(1)
			return nil
		}),
	})
	if err != nil {
		t.Fatalf("failed to create keep-alive scheduler: %v", err)
	}
	defer ka.Stop()

	s, err := scheduler.New("warm", "@every 1s", application.RunnerFunc(ka.Trigger))
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)

	time.Sleep(1500 * time.Millisecond)

	if pings.Load() != 1 {
		t.Errorf("expected one warm-up ping, got %v", pings.Load())
	}

	if ka.Stats().Firings != 1 {
		t.Errorf("expected warm-up to be recorded as a firing, got %v", ka.Stats().Firings)
	}
}

func TestNew_ValidExpression(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		expr string
	}{
		{"standard cron every minute", "* * * * *"},
		{"every 5 minutes", "*/5 * * * *"},
		{"hourly descriptor", "@hourly"},
		{"daily descriptor", "@daily"},
		{"weekly descriptor", "@weekly"},
		{"every 30 seconds", "@every 30s"},
		{"every 2 hours interval", "@every 2h"},
		{"weekday mornings", "45 8 * * MON-FRI"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, err := scheduler.New(tc.name, tc.expr, application.RunnerFunc(func(ctx context.Context) error {
				return nil
			}))

			if err != nil {
				t.Errorf("expected no error for valid expression %q, got: %v", tc.expr, err)
			}

			if s == nil || s.Name() != tc.name {
				t.Error("expected named scheduler")
			}
		})
	}
}

func TestNew_InvalidExpression(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		expr string
	}{
		{"empty expression", ""},
		{"invalid format", "invalid"},
		{"too many fields", "* * * * * * *"},
		{"invalid range", "60 * * * *"},
		{"invalid descriptor", "@invalid"},
		{"invalid interval", "@every abc"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, err := scheduler.New("warm", tc.expr, application.RunnerFunc(func(ctx context.Context) error {
				return nil
			}))

			if err == nil {
				t.Errorf("expected error for invalid expression %q, got nil", tc.expr)
			}

			if s != nil {
				t.Error("expected nil scheduler for invalid expression")
			}
		})
	}
}

func TestNew_NilRunner(t *testing.T) {
	t.Parallel()

	if _, err := scheduler.New("warm", "@daily", nil); err == nil {
		t.Error("expected error for nil runner")
	}
}
