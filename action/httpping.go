// Package action contains keep-alive actions for dependencies reachable over HTTP.
package action

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"time"

	"golang.org/x/net/http2"

	"github.com/platforma-dev/keepalive/log"
)

const (
	defaultTimeout = 10 * time.Second
	maxDrainBytes  = 64 << 10
)

var errURLRequired = errors.New("url is required")

// ErrUnexpectedStatus is returned when the pinged endpoint answers with a status
// that is not accepted.
type ErrUnexpectedStatus struct {
	url    string
	status int
}

// Error returns the formatted error message for ErrUnexpectedStatus.
func (e *ErrUnexpectedStatus) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.status, e.url)
}

// Status returns the received status code.
func (e *ErrUnexpectedStatus) Status() int {
	return e.status
}

// HTTPPingConfig configures an HTTP ping.
type HTTPPingConfig struct {
	URL     string
	Method  string // GET when empty
	Timeout time.Duration
	Headers map[string]string
	// ExpectedStatus lists accepted status codes. Any 2xx is accepted when empty.
	ExpectedStatus     []int
	CAFile             string
	InsecureSkipVerify bool
}

// HTTPPing requests a URL to wake a serverless function or a scaled-to-zero container.
// It implements application.Runner. TLS endpoints are reached over HTTP/2 when offered.
type HTTPPing struct {
	cfg    HTTPPingConfig
	client *http.Client
}

// NewHTTPPing builds the HTTP client for cfg.
func NewHTTPPing(cfg HTTPPingConfig) (*HTTPPing, error) {
	if cfg.URL == "" {
		return nil, errURLRequired
	}

	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = caCertPool
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: cfg.Timeout,
		MaxIdleConns:        1,
		IdleConnTimeout:     90 * time.Second,
	}

	if _, err := http2.ConfigureTransports(transport); err != nil {
		return nil, fmt.Errorf("failed to configure http2 transport: %w", err)
	}

	return &HTTPPing{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}, nil
}

// Run performs one request. Any transport error or unaccepted status is returned.
func (p *HTTPPing) Run(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, p.cfg.Method, p.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create ping request: %w", err)
	}

	for key, value := range p.cfg.Headers {
		req.Header.Set(key, value)
	}

	started := time.Now()

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if !p.accepted(resp.StatusCode) {
		return &ErrUnexpectedStatus{url: p.cfg.URL, status: resp.StatusCode}
	}

	log.DebugContext(ctx, "http ping succeeded",
		"url", p.cfg.URL,
		"status", resp.StatusCode,
		"proto", resp.Proto,
		"duration", time.Since(started),
	)

	return nil
}

func (p *HTTPPing) accepted(status int) bool {
	if len(p.cfg.ExpectedStatus) == 0 {
		return status >= 200 && status < 300
	}

	return slices.Contains(p.cfg.ExpectedStatus, status)
}
