package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platforma-dev/keepalive/application"
	"github.com/platforma-dev/keepalive/keepalive"
	"github.com/platforma-dev/keepalive/log"
)

var calls int

// flakyPing fails every other attempt, so each firing needs one retry.
func flakyPing(ctx context.Context) error {
	calls++
	if calls%2 == 1 {
		return errors.New("connection reset by peer")
	}

	log.InfoContext(ctx, "keep-alive ping succeeded")
	return nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := keepalive.DefaultConfig()
	cfg.InactivityLimit = time.Second
	cfg.RetryDelay = 200 * time.Millisecond
	cfg.Label = "flaky"
	cfg.Action = application.RunnerFunc(flakyPing)

	s, err := keepalive.New(cfg)
	if err != nil {
		log.ErrorContext(ctx, "failed to create keep-alive scheduler", "error", err)
		return
	}

	go func() {
		time.Sleep(3500 * time.Millisecond)
		cancel()
	}()

	s.Run(ctx)

	stats := s.Stats()
	fmt.Printf("firings: %d, exhaustions: %d, activity: %d\n", stats.Firings, stats.Exhaustions, stats.ActivityCount)
}
