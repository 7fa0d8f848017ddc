package keepalive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/platforma-dev/keepalive/log"
)

const attemptErrorsAttr = "attempt.errors"

// executeWithRetries runs the action up to MaxRetryAttempts+1 times and returns
// the number of attempts made. Between two failed attempts it waits RetryDelay.
func (s *Scheduler) executeWithRetries(ctx context.Context) (int, error) {
	total := s.cfg.MaxRetryAttempts + 1
	event := log.EventFromContext(ctx)

	var (
		lastErr       error
		attemptErrors []string
	)

	for attempt := 1; attempt <= total; attempt++ {
		attemptCtx := context.WithValue(ctx, log.AttemptKey, strconv.Itoa(attempt))

		err := s.runAttempt(attemptCtx)
		if err == nil {
			if event != nil {
				event.AddStep(slog.LevelInfo, fmt.Sprintf("attempt %d succeeded", attempt))
			}
			return attempt, nil
		}

		lastErr = &ErrKeepAliveFailed{attempt: attempt, err: err}

		log.WarnContext(attemptCtx, "keep-alive attempt failed", "of", total, "error", err)
		s.cfg.Observer.OnAttemptFailed(attemptCtx, attempt, lastErr)

		// Failed attempts are warnings; only an exhausted firing is an event error.
		if event != nil {
			attemptErrors = append(attemptErrors, err.Error())
			event.AddStep(slog.LevelWarn, fmt.Sprintf("attempt %d failed", attempt))
			event.AddAttrs(map[string]any{attemptErrorsAttr: slices.Clone(attemptErrors)})
		}

		if attempt == total {
			break
		}

		if err := s.wait(ctx, s.cfg.RetryDelay); err != nil {
			return attempt, &ErrKeepAliveExhausted{attempts: attempt, err: errors.Join(lastErr, err)}
		}
	}

	return total, &ErrKeepAliveExhausted{attempts: total, err: lastErr}
}

// runAttempt invokes the action once. A panic is returned as an error.
func (s *Scheduler) runAttempt(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errActionPanicked, r)
		}
	}()

	return s.cfg.Action.Run(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
