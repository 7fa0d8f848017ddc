package action_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platforma-dev/keepalive/action"
)

func TestHTTPPing_Success(t *testing.T) {
	t.Parallel()

	var gotMethod, gotHeader atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod.Store(r.Method)
		gotHeader.Store(r.Header.Get("X-Keepalive"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	ping, err := action.NewHTTPPing(action.HTTPPingConfig{
		URL:     server.URL + "/warm",
		Method:  http.MethodHead,
		Headers: map[string]string{"X-Keepalive": "orders"},
	})
	if err != nil {
		t.Fatalf("failed to create ping: %v", err)
	}

	if err := ping.Run(context.Background()); err != nil {
		t.Fatalf("expected ping to succeed, got %v", err)
	}

	if gotMethod.Load() != http.MethodHead {
		t.Errorf("expected HEAD, got %v", gotMethod.Load())
	}

	if gotHeader.Load() != "orders" {
		t.Errorf("expected custom header, got %v", gotHeader.Load())
	}
}

func TestHTTPPing_UnexpectedStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ping, err := action.NewHTTPPing(action.HTTPPingConfig{URL: server.URL})
	if err != nil {
		t.Fatalf("failed to create ping: %v", err)
	}

	err = ping.Run(context.Background())

	var statusErr *action.ErrUnexpectedStatus
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *ErrUnexpectedStatus, got %v", err)
	}

	if statusErr.Status() != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", statusErr.Status())
	}
}

func TestHTTPPing_ExpectedStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	ping, err := action.NewHTTPPing(action.HTTPPingConfig{
		URL:            server.URL,
		ExpectedStatus: []int{http.StatusOK, http.StatusUnauthorized},
	})
	if err != nil {
		t.Fatalf("failed to create ping: %v", err)
	}

	if err := ping.Run(context.Background()); err != nil {
		t.Errorf("expected 401 to be accepted, got %v", err)
	}
}

func TestHTTPPing_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ping, err := action.NewHTTPPing(action.HTTPPingConfig{URL: server.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("failed to create ping: %v", err)
	}

	if err := ping.Run(context.Background()); err == nil {
		t.Error("expected timeout error")
	}
}

func TestHTTPPing_HTTP2(t *testing.T) {
	t.Parallel()

	var proto atomic.Int32
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proto.Store(int32(r.ProtoMajor))
		w.WriteHeader(http.StatusOK)
	}))
	server.EnableHTTP2 = true
	server.StartTLS()
	defer server.Close()

	ping, err := action.NewHTTPPing(action.HTTPPingConfig{URL: server.URL, InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("failed to create ping: %v", err)
	}

	if err := ping.Run(context.Background()); err != nil {
		t.Fatalf("expected ping to succeed, got %v", err)
	}

	if proto.Load() != 2 {
		t.Errorf("expected HTTP/2, got HTTP/%d", proto.Load())
	}
}

func TestNewHTTPPing_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := action.NewHTTPPing(action.HTTPPingConfig{}); err == nil {
		t.Error("expected error for missing url")
	}

	if _, err := action.NewHTTPPing(action.HTTPPingConfig{URL: "https://example.com", CAFile: "/nonexistent/ca.pem"}); err == nil {
		t.Error("expected error for missing CA file")
	}
}
