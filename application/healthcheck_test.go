package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/platforma-dev/keepalive/application"
)

func TestHealthCheckHandler_ServeHTTP_Success(t *testing.T) {
	t.Parallel()

	app := application.New()
	app.RegisterService("keepalive", &mockHealthcheckerService{
		healthData: map[string]any{"label": "orders-db", "state": "ARMED"},
	})

	handler := application.NewHealthCheckHandler(app)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	if contentType := rec.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("expected Content-Type %q, got %q", "application/json", contentType)
	}

	var health application.Health
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	service, ok := health.Services["keepalive"]
	if !ok {
		t.Fatal("expected keepalive in health response")
	}

	if service.Data == nil {
		t.Error("expected healthcheck data to be populated")
	}
}

func TestHealthCheckHandler_ServeHTTP_FailedService(t *testing.T) {
	t.Parallel()

	app := application.New()
	app.RegisterService("broken", application.RunnerFunc(func(_ context.Context) error {
		return errors.New("boom")
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	handler := application.NewHealthCheckHandler(app)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestHealthCheckHandler_ServeHTTP_ContextPropagation(t *testing.T) {
	t.Parallel()

	app := application.New()
	checker := &contextCheckingHealthchecker{}
	app.RegisterService("context-service", checker)

	handler := application.NewHealthCheckHandler(app)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !checker.contextReceived {
		t.Error("expected context to be passed to healthcheck")
	}
}

type contextCheckingHealthchecker struct {
	contextReceived bool
}

func (c *contextCheckingHealthchecker) Run(_ context.Context) error {
	return nil
}

func (c *contextCheckingHealthchecker) Healthcheck(ctx context.Context) any {
	if ctx != nil {
		c.contextReceived = true
	}
	return map[string]string{"status": "ok"}
}
