package main

import (
	"context"
	"net/http"
	"time"

	"github.com/platforma-dev/keepalive/application"
	"github.com/platforma-dev/keepalive/httpserver"
	"github.com/platforma-dev/keepalive/keepalive"
	"github.com/platforma-dev/keepalive/log"
)

func main() {
	ctx := context.Background()

	// Initialize new application
	app := application.New()

	// Create keep-alive scheduler. It pings the "database" after 10 seconds without requests
	ka, err := keepalive.New(keepalive.Config{
		InactivityLimit: 10 * time.Second,
		Label:           "demo-db",
		Action: application.RunnerFunc(func(ctx context.Context) error {
			log.InfoContext(ctx, "pinging database so it does not go to sleep")
			return nil
		}),
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to create keep-alive scheduler", "error", err)
		return
	}

	// Create HTTP server
	api := httpserver.New("8080", 3*time.Second)

	// Add middleware to HTTP server. It will add trace ID to logs and responce headers
	api.Use(log.NewTraceIDMiddleware(nil, ""))

	// Every request except /health postpones the keep-alive ping
	api.Use(ka.Middleware("/health"))

	// Add /ping endpoint to `api`
	api.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})

	// Health requests are ignored by the keep-alive middleware
	api.Handle("/health", application.NewHealthCheckHandler(app))

	// Register HTTP server and keep-alive scheduler as application services
	app.RegisterService("api", api)
	app.RegisterService("keepalive", ka)

	// Run application
	if err := app.Run(ctx); err != nil {
		log.ErrorContext(ctx, "app finished with error", "error", err)
	}

	// Call http://localhost:8080/ping more often than every 10 seconds and the
	// database is never pinged. Stop calling it and the ping is logged.
}
