package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/platforma-dev/keepalive/application"
	"github.com/platforma-dev/keepalive/keepalive"
	"github.com/platforma-dev/keepalive/log"
)

func main() {
	ctx := context.Background()

	// Keep every event with at least one failed attempt, and 10% of the rest
	logger := log.NewWideEventLogger(
		os.Stdout,
		log.NewDefaultSampler(3*time.Second, 2, 0.1),
		"json",
		nil,
	)

	s, err := keepalive.New(keepalive.Config{
		InactivityLimit:  time.Hour,
		MaxRetryAttempts: 2,
		RetryDelay:       100 * time.Millisecond,
		Label:            "search",
		Action: application.RunnerFunc(func(context.Context) error {
			return errors.New("upstream returned 503")
		}),
		EventLogger: logger,
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to create keep-alive scheduler", "error", err)
		return
	}
	defer s.Stop()

	// One "keepalive.firing" event with three failed attempts is written
	if err := s.Trigger(ctx); err != nil {
		log.InfoContext(ctx, "firing exhausted its retries", "error", err)
	}
}
