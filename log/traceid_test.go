package log_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	keepalivelog "github.com/platforma-dev/keepalive/log"
)

func TestTraceIDMiddleware(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, r *http.Request) {
		i, ok := r.Context().Value(keepalivelog.TraceIDKey).(string)
		if ok {
			w.Header().Add("TraceIdFromContext", i)
		}
	}

	t.Run("default params", func(t *testing.T) {
		t.Parallel()

		m := keepalivelog.NewTraceIDMiddleware(nil, "")
		wrappedHandler := m.Wrap(http.HandlerFunc(handler))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		wrappedHandler.ServeHTTP(w, r)
		resp := w.Result()

		if len(resp.Header.Get("Keepalive-Trace-Id")) == 0 {
			t.Fatalf("default trace id header expected, got: %s", resp.Header)
		}

		if resp.Header.Get("TraceIdFromContext") != resp.Header.Get("Keepalive-Trace-Id") {
			t.Fatalf("trace id from context expected to match header, got: %s", resp.Header)
		}
	})

	t.Run("incoming trace id is reused", func(t *testing.T) {
		t.Parallel()

		const incoming = "6f1c1f0e-3f6b-4a4e-9c43-8a4b7a0d2b10"

		m := keepalivelog.NewTraceIDMiddleware(nil, "X-Request-Id")
		wrappedHandler := m.Wrap(http.HandlerFunc(handler))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-Id", incoming)
		w := httptest.NewRecorder()

		wrappedHandler.ServeHTTP(w, r)

		if got := w.Result().Header.Get("TraceIdFromContext"); got != incoming {
			t.Fatalf("expected incoming trace id %q, got %q", incoming, got)
		}
	})

	t.Run("malformed trace id is replaced", func(t *testing.T) {
		t.Parallel()

		m := keepalivelog.NewTraceIDMiddleware(nil, "")
		wrappedHandler := m.Wrap(http.HandlerFunc(handler))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Keepalive-Trace-Id", "not-a-uuid\nInjected: yes")
		w := httptest.NewRecorder()

		wrappedHandler.ServeHTTP(w, r)

		if got := w.Result().Header.Get("Keepalive-Trace-Id"); got == "" || got == "not-a-uuid\nInjected: yes" {
			t.Fatalf("expected a fresh trace id, got %q", got)
		}
	})
}
