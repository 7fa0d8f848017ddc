package main

import (
	"context"
	"fmt"
	"time"

	"github.com/platforma-dev/keepalive/application"
	"github.com/platforma-dev/keepalive/keepalive"
	"github.com/platforma-dev/keepalive/log"
	"github.com/platforma-dev/keepalive/scheduler"
)

func wakeReportsDB(ctx context.Context) error {
	log.InfoContext(ctx, "waking reports database")
	return nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The inactivity limit is long, so only warm-ups fire in this demo
	ka, err := keepalive.New(keepalive.Config{
		InactivityLimit: time.Hour,
		Label:           "reports-db",
		Action:          application.RunnerFunc(wakeReportsDB),
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to create keep-alive scheduler", "error", err)
		return
	}

	// Example 1: Using @every syntax - every 3 seconds
	w1, err := scheduler.New("frequent", "@every 3s", application.RunnerFunc(ka.Trigger))
	if err != nil {
		log.ErrorContext(ctx, "failed to create warm-up 1", "error", err)
		return
	}

	// Example 2: Before business hours on weekdays (won't execute in this demo)
	w2, err := scheduler.New("business-hours", "45 8 * * MON-FRI", application.RunnerFunc(ka.Trigger))
	if err != nil {
		log.ErrorContext(ctx, "failed to create warm-up 2", "error", err)
		return
	}

	fmt.Println("Starting warm-up demo...")
	fmt.Println("Active warm-ups:")
	fmt.Println("  1. Every 3 seconds (@every 3s)")
	fmt.Println("  2. Weekdays at 8:45 UTC (45 8 * * MON-FRI) - won't execute in demo")
	fmt.Println("\nWatch the logs for firings. Demo will run for 10 seconds.")

	go ka.Run(ctx)
	go w1.Run(ctx)
	go w2.Run(ctx)

	time.Sleep(10 * time.Second)
	cancel()

	// Allow graceful shutdown
	time.Sleep(100 * time.Millisecond)

	fmt.Printf("\nDemo completed! Firings: %d\n", ka.Stats().Firings)
}
