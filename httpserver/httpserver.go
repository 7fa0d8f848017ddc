// Package httpserver provides the host HTTP server whose requests count as keep-alive activity.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/platforma-dev/keepalive/log"
)

// HTTPServer is an HTTP server with a middleware chain and graceful shutdown.
// It implements application.Runner.
type HTTPServer struct {
	port            string
	shutdownTimeout time.Duration
	mux             *http.ServeMux

	mu          sync.Mutex
	middlewares []Middleware
	addr        net.Addr
}

// New creates an HTTP server listening on port. Port "0" picks a free port.
func New(port string, shutdownTimeout time.Duration) *HTTPServer {
	return &HTTPServer{
		port:            port,
		shutdownTimeout: shutdownTimeout,
		mux:             http.NewServeMux(),
	}
}

// Handle registers handler for pattern.
func (s *HTTPServer) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// HandleFunc registers handler function for pattern.
func (s *HTTPServer) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.mux.HandleFunc(pattern, handler)
}

// HandleGroup mounts group under prefix. The group sees paths with prefix stripped.
func (s *HTTPServer) HandleGroup(prefix string, group *HandlerGroup) {
	s.mux.Handle(prefix+"/", http.StripPrefix(prefix, group))
}

// Use appends middlewares. The first registered middleware is the outermost one.
func (s *HTTPServer) Use(middlewares ...Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.middlewares = append(s.middlewares, middlewares...)
}

// UseFunc appends middleware functions.
func (s *HTTPServer) UseFunc(middlewares ...func(http.Handler) http.Handler) {
	for _, m := range middlewares {
		s.Use(MiddlewareFunc(m))
	}
}

// ServeHTTP serves r through the middleware chain.
func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler().ServeHTTP(w, r)
}

// Addr returns the listening address, or nil before Run has started listening.
func (s *HTTPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addr
}

func (s *HTTPServer) handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()

	return wrap(s.mux, s.middlewares)
}

// Run listens on the configured port until ctx is canceled, then waits up to the
// shutdown timeout for in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.port, err)
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()

	server := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	log.InfoContext(ctx, "http server started", "addr", listener.Addr().String())

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.InfoContext(ctx, "shutting down http server", "timeout", s.shutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}

	log.InfoContext(ctx, "http server stopped")

	return nil
}
