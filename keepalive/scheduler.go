// Package keepalive fires a keep-alive action when a guarded dependency has been idle
// for too long, so that it is not suspended between bursts of traffic.
package keepalive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platforma-dev/keepalive/log"
)

// State is the lifecycle state of a Scheduler.
type State int

const (
	// StateArmed means a deadline timer is pending.
	StateArmed State = iota
	// StateFiring means the keep-alive action is being executed.
	StateFiring
	// StateStopped means no timer is pending and no firing will happen.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateArmed:
		return "ARMED"
	case StateFiring:
		return "FIRING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	reasonDeadline = "inactivity"
	reasonManual   = "manual"
)

// Stats is a point-in-time view of a Scheduler.
type Stats struct {
	ActivityCount int64      `json:"activityCount"`
	LastActivity  time.Time  `json:"lastActivity"`
	Label         string     `json:"label,omitempty"`
	State         State      `json:"state"`
	Firings       int64      `json:"firings"`
	Exhaustions   int64      `json:"exhaustions"`
	LastFiring    *time.Time `json:"lastFiring,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
}

// Scheduler runs the keep-alive action after InactivityLimit without activity.
// All methods are safe for concurrent use.
type Scheduler struct {
	cfg  Config
	wait func(ctx context.Context, d time.Duration) error

	mu            sync.Mutex
	baseCtx       context.Context //nolint:containedctx
	activityCount int64
	lastActivity  time.Time
	timer         *time.Timer
	generation    uint64
	stopped       bool
	firing        bool
	firings       int64
	exhaustions   int64
	lastFiring    time.Time
	lastError     error
}

// New validates cfg and returns an armed Scheduler. The first idle window starts now.
func New(cfg Config) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:          cfg.withDefaults(),
		wait:         sleep,
		baseCtx:      context.Background(),
		lastActivity: time.Now(),
	}

	s.mu.Lock()
	s.armLocked(s.cfg.InactivityLimit)
	s.mu.Unlock()

	return s, nil
}

// RegisterActivity records activity and restarts the idle window.
// During a firing only the counters are updated; the firing rearms the timer itself.
// A stopped scheduler updates the counters and arms nothing.
func (s *Scheduler) RegisterActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activityCount++
	s.touchLocked(time.Now())

	if s.stopped || s.firing {
		return
	}

	s.armLocked(s.cfg.InactivityLimit)
}

// Trigger fires the keep-alive action now and waits for the result.
// The timer is rearmed afterwards unless the scheduler was stopped meanwhile.
func (s *Scheduler) Trigger(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}

	if s.firing {
		s.mu.Unlock()
		return ErrFiring
	}

	s.firing = true
	s.cancelTimerLocked()
	s.mu.Unlock()

	return s.fire(ctx, reasonManual)
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		ActivityCount: s.activityCount,
		LastActivity:  s.lastActivity,
		Label:         s.cfg.Label,
		State:         s.stateLocked(),
		Firings:       s.firings,
		Exhaustions:   s.exhaustions,
	}

	if !s.lastFiring.IsZero() {
		lastFiring := s.lastFiring
		stats.LastFiring = &lastFiring
	}

	if s.lastError != nil {
		stats.LastError = s.lastError.Error()
	}

	return stats
}

// ResetActivityCount sets the activity count to zero. The timer and the last
// activity time are left alone.
func (s *Scheduler) ResetActivityCount() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activityCount = 0
}

// Stop cancels the pending timer. A firing in progress completes but does not rearm.
// Calling Stop more than once has no further effect.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	s.cancelTimerLocked()
}

// Start arms a stopped scheduler for a full idle window. It does nothing otherwise.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.stopped {
		return
	}

	s.stopped = false

	if !s.firing {
		s.armLocked(s.cfg.InactivityLimit)
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stateLocked()
}

// Label returns the configured label.
func (s *Scheduler) Label() string {
	return s.cfg.Label
}

// Run starts the scheduler and blocks until ctx is done, then stops it.
// Firings started meanwhile inherit the values of ctx and abort their retry wait when it is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.Start()

	log.InfoContext(ctx, "keep-alive scheduler started",
		"label", s.cfg.Label,
		"inactivityLimit", s.cfg.InactivityLimit,
		"maxRetryAttempts", s.cfg.MaxRetryAttempts,
		"retryDelay", s.cfg.RetryDelay,
		"windowPolicy", s.cfg.WindowPolicy,
	)

	<-ctx.Done()

	s.Stop()

	s.mu.Lock()
	s.baseCtx = context.Background()
	s.mu.Unlock()

	log.InfoContext(ctx, "keep-alive scheduler stopped", "label", s.cfg.Label)

	return fmt.Errorf("keep-alive scheduler stopped: %w", ctx.Err())
}

// Healthcheck returns the current Stats.
func (s *Scheduler) Healthcheck(_ context.Context) any {
	return s.Stats()
}

func (s *Scheduler) stateLocked() State {
	switch {
	case s.stopped:
		return StateStopped
	case s.firing:
		return StateFiring
	default:
		return StateArmed
	}
}

func (s *Scheduler) touchLocked(now time.Time) {
	if now.After(s.lastActivity) {
		s.lastActivity = now
	}
}

func (s *Scheduler) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	s.generation++
}

func (s *Scheduler) armLocked(d time.Duration) {
	s.cancelTimerLocked()

	generation := s.generation
	s.timer = time.AfterFunc(d, func() {
		s.onDeadline(generation)
	})
}

func (s *Scheduler) onDeadline(generation uint64) {
	s.mu.Lock()
	if generation != s.generation || s.stopped || s.firing {
		s.mu.Unlock()
		return
	}

	s.timer = nil

	idle := time.Since(s.lastActivity)
	if idle < s.cfg.InactivityLimit {
		s.armLocked(s.cfg.InactivityLimit - idle)
		s.mu.Unlock()
		return
	}

	s.firing = true
	ctx := s.baseCtx
	s.mu.Unlock()

	// The error is already logged, observed and recorded in stats.
	_ = s.fire(ctx, reasonDeadline)
}

func (s *Scheduler) fire(ctx context.Context, reason string) (err error) {
	firingID := uuid.NewString()
	startedAt := time.Now()

	ctx = context.WithValue(ctx, log.FiringIDKey, firingID)
	if s.cfg.Label != "" {
		ctx = context.WithValue(ctx, log.SchedulerLabelKey, s.cfg.Label)
	}

	var event *log.Event
	if s.cfg.EventLogger != nil {
		event = log.NewEvent("keepalive.firing")
		event.AddAttrs(map[string]any{
			"firing.id":       firingID,
			"firing.reason":   reason,
			"scheduler.label": s.cfg.Label,
		})
		ctx = log.WithEvent(ctx, event)
	}

	attempts := 0
	defer func() {
		s.finish(startedAt, err)

		if event != nil {
			outcome := "success"
			if err != nil {
				outcome = "exhausted"
			}
			event.AddAttrs(map[string]any{log.AttemptsAttr: attempts, "outcome": outcome})
			if !s.cfg.EventLogger.WriteEvent(ctx, event) {
				log.DebugContext(ctx, "firing event sampled out", "attempts", attempts)
			}
		}
	}()

	log.InfoContext(ctx, "keep-alive firing", "reason", reason)
	s.cfg.Observer.OnFiring(ctx, s.cfg.Label)

	attempts, err = s.executeWithRetries(ctx)
	if err != nil {
		log.ErrorContext(ctx, "keep-alive exhausted", "attempts", attempts, "error", err)
		s.cfg.Observer.OnExhausted(ctx, err)

		if event != nil {
			event.AddError(err)
		}
		return err
	}

	log.InfoContext(ctx, "keep-alive succeeded", "attempts", attempts, "duration", time.Since(startedAt))
	s.cfg.Observer.OnSuccess(ctx, attempts)

	if event != nil {
		event.SetLevel(slog.LevelInfo)
	}

	return nil
}

// finish records the firing outcome and rearms the timer unless the scheduler is stopped.
func (s *Scheduler) finish(startedAt time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.firing = false
	s.firings++
	s.lastFiring = startedAt
	s.lastError = err

	if err != nil {
		s.exhaustions++
	} else if s.cfg.WindowPolicy == RestartWindow {
		s.activityCount++
		s.touchLocked(time.Now())
	}

	if !s.stopped {
		s.armLocked(s.cfg.InactivityLimit)
	}
}
