package log_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/platforma-dev/keepalive/log"
)

func TestEvent_LevelEscalation(t *testing.T) {
	t.Parallel()

	e := log.NewEvent("keepalive.firing")
	if e.Level() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", e.Level())
	}

	e.AddStep(slog.LevelWarn, "attempt 1 failed")
	e.AddStep(slog.LevelInfo, "attempt 2 succeeded")

	if e.Level() != slog.LevelWarn {
		t.Errorf("expected level to stay at warn, got %v", e.Level())
	}

	e.AddError(errors.New("connection refused"))
	if e.Level() != slog.LevelError {
		t.Errorf("expected error level, got %v", e.Level())
	}

	if !e.HasErrors() || e.ErrorCount() != 1 {
		t.Errorf("expected exactly one error, got %d", e.ErrorCount())
	}

	steps := e.Steps()
	if len(steps) != 2 || steps[0] != "attempt 1 failed" {
		t.Errorf("unexpected steps: %v", steps)
	}
}

func TestEvent_NilErrorIgnored(t *testing.T) {
	t.Parallel()

	e := log.NewEvent("keepalive.firing")
	e.AddError(nil)

	if e.HasErrors() {
		t.Error("expected nil error to be ignored")
	}
}

func TestEvent_CustomAttrsDoNotShadowBuiltins(t *testing.T) {
	t.Parallel()

	e := log.NewEvent("keepalive.firing")
	e.AddAttrs(map[string]any{
		"name":            "spoofed",
		"firing.attempts": 2,
	})

	attrs := e.ToAttrs()

	names := 0
	for _, attr := range attrs {
		if attr.Key == "name" {
			names++
			if attr.Value.String() != "keepalive.firing" {
				t.Errorf("expected builtin name, got %q", attr.Value.String())
			}
		}
	}

	if names != 1 {
		t.Errorf("expected a single name attribute, got %d", names)
	}

	if value, ok := e.Attr("firing.attempts"); !ok || value != 2 {
		t.Errorf("expected firing.attempts=2, got %v", value)
	}
}

func TestEventContext(t *testing.T) {
	t.Parallel()

	if log.EventFromContext(context.Background()) != nil {
		t.Fatal("expected no event in empty context")
	}

	e := log.NewEvent("keepalive.firing")
	ctx := log.WithEvent(context.Background(), e)

	if log.EventFromContext(ctx) != e {
		t.Error("expected stored event to be returned")
	}
}

func TestDefaultSampler(t *testing.T) {
	t.Parallel()

	sampler := log.NewDefaultSampler(time.Hour, 2, 0)

	testCases := []struct {
		name     string
		build    func() *log.Event
		expected bool
	}{
		{
			name: "first attempt success is dropped",
			build: func() *log.Event {
				e := log.NewEvent("keepalive.firing")
				e.AddAttrs(map[string]any{log.AttemptsAttr: 1})
				return e
			},
			expected: false,
		},
		{
			name: "retried firing is kept",
			build: func() *log.Event {
				e := log.NewEvent("keepalive.firing")
				e.AddAttrs(map[string]any{log.AttemptsAttr: 2})
				return e
			},
			expected: true,
		},
		{
			name: "failed firing is kept",
			build: func() *log.Event {
				e := log.NewEvent("keepalive.firing")
				e.AddError(errors.New("exhausted"))
				return e
			},
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := sampler.ShouldSample(context.Background(), tc.build()); got != tc.expected {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestWideEventLogger_WriteEvent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.NewWideEventLogger(&buf, nil, "json", nil)

	e := log.NewEvent("keepalive.firing")
	e.AddAttrs(map[string]any{"scheduler.label": "orders-db"})
	e.AddError(errors.New("dial tcp: connection refused"))

	ctx := context.WithValue(context.Background(), log.FiringIDKey, "firing-1")
	if !logger.WriteEvent(ctx, e) {
		t.Fatal("expected event to be written without a sampler")
	}

	output := buf.String()
	for _, expected := range []string{`"name":"keepalive.firing"`, `"scheduler.label":"orders-db"`, `"firingId":"firing-1"`, "connection refused"} {
		if !strings.Contains(output, expected) {
			t.Errorf("expected %s in output, got: %s", expected, output)
		}
	}

	if strings.Contains(output, `"msg"`) {
		t.Errorf("expected message key to be stripped, got: %s", output)
	}
}

func TestWideEventLogger_SamplerDrops(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.NewWideEventLogger(&buf, log.SamplerFunc(func(context.Context, *log.Event) bool {
		return false
	}), "text", nil)

	if logger.WriteEvent(context.Background(), log.NewEvent("keepalive.firing")) {
		t.Error("expected WriteEvent to report a dropped event")
	}

	if buf.Len() != 0 {
		t.Errorf("expected dropped event, got: %s", buf.String())
	}
}

func TestWideEventLogger_WritesAtEventLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.NewWideEventLogger(&buf, nil, "text", nil)

	e := log.NewEvent("keepalive.firing")
	e.AddStep(slog.LevelWarn, "attempt 1 failed")
	logger.WriteEvent(context.Background(), e)

	output := buf.String()
	if !strings.Contains(output, "level=WARN") || strings.Contains(output, "time=") {
		t.Errorf("expected a WARN line without time, got: %s", output)
	}
}

func TestWideEventLogger_NilDiscards(t *testing.T) {
	t.Parallel()

	var logger *log.WideEventLogger
	if logger.WriteEvent(context.Background(), log.NewEvent("keepalive.firing")) {
		t.Error("expected a nil logger to discard events")
	}
}
