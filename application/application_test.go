package application_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platforma-dev/keepalive/application"
)

func TestNew(t *testing.T) {
	t.Parallel()

	app := application.New()
	if app == nil {
		t.Fatal("expected non-nil application")
	}

	health := app.Health(context.Background())
	if health == nil {
		t.Fatal("expected non-nil health")
	}
	if len(health.Services) != 0 {
		t.Errorf("expected 0 services, got %d", len(health.Services))
	}
}

func TestRegisterService(t *testing.T) {
	t.Parallel()

	app := application.New()
	app.RegisterService("test-service", application.RunnerFunc(func(_ context.Context) error {
		return nil
	}))

	health := app.Health(context.Background())
	serviceHealth, ok := health.Services["test-service"]
	if !ok {
		t.Fatal("expected test-service in health map")
	}

	if serviceHealth.Status != application.ServiceStatusNotStarted {
		t.Errorf("expected ServiceStatusNotStarted, got %v", serviceHealth.Status)
	}
}

func TestRegisterServiceWithHealthchecker(t *testing.T) {
	t.Parallel()

	app := application.New()
	app.RegisterService("keepalive", &mockHealthcheckerService{
		healthData: map[string]string{"state": "ARMED"},
	})

	health := app.Health(context.Background())
	serviceHealth, ok := health.Services["keepalive"]
	if !ok {
		t.Fatal("expected keepalive in health map")
	}

	if serviceHealth.Data == nil {
		t.Error("expected healthcheck data to be populated")
	}
}

func TestRegisterService_SameNameOverwrites(t *testing.T) {
	t.Parallel()

	app := application.New()
	app.RegisterService("duplicate", &mockHealthcheckerService{healthData: "first"})
	app.RegisterService("duplicate", application.RunnerFunc(func(_ context.Context) error {
		return nil
	}))

	health := app.Health(context.Background())
	if len(health.Services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(health.Services))
	}

	if health.Services["duplicate"].Data != nil {
		t.Error("expected healthchecker of the replaced service to be dropped")
	}
}

func TestRun_StartupTasksInOrder(t *testing.T) {
	t.Parallel()

	app := application.New()

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		app.OnStartFunc(func(_ context.Context) error {
			order = append(order, name)
			return nil
		}, application.StartupTaskConfig{Name: name})
	}

	err := app.Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Errorf("unexpected startup order: %v", order)
	}
}

func TestRun_AbortOnError(t *testing.T) {
	t.Parallel()

	taskErr := errors.New("warm-up failed")

	var serviceStarted atomic.Bool
	app := application.New()
	app.OnStart(application.RunnerFunc(func(_ context.Context) error {
		return taskErr
	}), application.StartupTaskConfig{Name: "warm-up", AbortOnError: true})
	app.RegisterService("svc", application.RunnerFunc(func(_ context.Context) error {
		serviceStarted.Store(true)
		return nil
	}))

	err := app.Run(context.Background())

	var startupErr *application.ErrStartupTaskFailed
	if !errors.As(err, &startupErr) {
		t.Fatalf("expected ErrStartupTaskFailed, got %v", err)
	}

	if !errors.Is(err, taskErr) {
		t.Error("expected task error in chain")
	}

	if serviceStarted.Load() {
		t.Error("service must not start after aborted startup task")
	}
}

func TestRun_IgnoredStartupError(t *testing.T) {
	t.Parallel()

	app := application.New()
	app.OnStart(application.RunnerFunc(func(_ context.Context) error {
		return errors.New("not fatal")
	}), application.StartupTaskConfig{Name: "optional"})

	if err := app.Run(context.Background()); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestRun_ServiceStates(t *testing.T) {
	t.Parallel()

	app := application.New()
	app.RegisterService("ok", application.RunnerFunc(func(_ context.Context) error {
		return nil
	}))
	app.RegisterService("broken", application.RunnerFunc(func(_ context.Context) error {
		return errors.New("boom")
	}))
	app.RegisterService("panicky", application.RunnerFunc(func(_ context.Context) error {
		panic("unexpected")
	}))
	app.RegisterService("canceled", application.RunnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	health := app.Health(context.Background())

	testCases := map[string]application.ServiceStatus{
		"ok":       application.ServiceStatusStopped,
		"broken":   application.ServiceStatusError,
		"panicky":  application.ServiceStatusError,
		"canceled": application.ServiceStatusStopped,
	}

	for name, expected := range testCases {
		if got := health.Services[name].Status; got != expected {
			t.Errorf("service %s: expected status %v, got %v", name, expected, got)
		}
	}

	if health.Services["broken"].Error != "boom" {
		t.Errorf("expected error message to be stored, got %q", health.Services["broken"].Error)
	}

	if health.StartedAt.IsZero() {
		t.Error("expected application start time to be set")
	}
}

func TestRun_NilContext(t *testing.T) {
	t.Parallel()

	app := application.New()

	//nolint:staticcheck // nil context is accepted on purpose.
	if err := app.Run(nil); err != nil {
		t.Errorf("expected no error with nil context, got %v", err)
	}
}

func TestHealth_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	app := application.New()
	app.RegisterService("concurrent-service", &mockHealthcheckerService{healthData: "ok"})

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			health := app.Health(context.Background())
			if health == nil {
				t.Error("expected non-nil health")
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

type mockHealthcheckerService struct {
	healthData any
	runErr     error
}

func (m *mockHealthcheckerService) Run(_ context.Context) error {
	return m.runErr
}

func (m *mockHealthcheckerService) Healthcheck(_ context.Context) any {
	return m.healthData
}
