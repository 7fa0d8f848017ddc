package keepalive

import (
	"fmt"
	"strings"
	"time"

	"github.com/platforma-dev/keepalive/application"
	"github.com/platforma-dev/keepalive/log"
)

const (
	// DefaultMaxRetryAttempts is the number of retries after a failed first attempt.
	DefaultMaxRetryAttempts = 3
	// DefaultRetryDelay is the pause between two consecutive attempts.
	DefaultRetryDelay = time.Second
	// NoRetries disables retries: the action runs once per firing.
	NoRetries = -1
)

// WindowPolicy controls whether a successful firing restarts the idle window.
type WindowPolicy int

const (
	// RestartWindow treats a successful firing as activity: the activity count is
	// incremented and the last activity time moves to the firing time.
	RestartWindow WindowPolicy = iota
	// KeepWindow leaves activity statistics untouched after a firing.
	KeepWindow
)

// String returns the config name of the policy.
func (p WindowPolicy) String() string {
	switch p {
	case RestartWindow:
		return "restart"
	case KeepWindow:
		return "keep"
	default:
		return fmt.Sprintf("WindowPolicy(%d)", int(p))
	}
}

// ParseWindowPolicy converts "restart" or "keep" to a WindowPolicy.
// An empty name selects RestartWindow.
func ParseWindowPolicy(name string) (WindowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "restart":
		return RestartWindow, nil
	case "keep":
		return KeepWindow, nil
	default:
		return RestartWindow, &ErrInvalidConfig{field: "WindowPolicy", reason: fmt.Sprintf("unknown policy %q", name)}
	}
}

// Config configures a Scheduler. It is copied on construction and never changes afterwards.
type Config struct {
	// InactivityLimit is the idle time after which Action fires. Must be positive.
	InactivityLimit time.Duration
	// Action is the keep-alive action. Mandatory.
	Action application.Runner
	// MaxRetryAttempts is the number of retries after a failed first attempt.
	// Zero selects DefaultMaxRetryAttempts; use NoRetries for a single attempt.
	MaxRetryAttempts int
	// RetryDelay is the pause between attempts. Zero selects DefaultRetryDelay.
	RetryDelay time.Duration
	// Label identifies the guarded dependency in logs and stats.
	Label string
	// WindowPolicy decides whether a successful firing counts as activity.
	WindowPolicy WindowPolicy
	// Observer receives firing notifications. Optional.
	Observer Observer
	// EventLogger writes one wide event per firing. Optional.
	EventLogger *log.WideEventLogger
}

// DefaultConfig returns a configuration with default retry settings.
// InactivityLimit and Action still have to be set.
func DefaultConfig() Config {
	return Config{
		MaxRetryAttempts: DefaultMaxRetryAttempts,
		RetryDelay:       DefaultRetryDelay,
	}
}

func (c Config) validate() error {
	if c.InactivityLimit <= 0 {
		return &ErrInvalidConfig{field: "InactivityLimit", reason: fmt.Sprintf("must be positive, got %s", c.InactivityLimit)}
	}

	if c.Action == nil {
		return &ErrInvalidConfig{field: "Action", reason: "is required"}
	}

	if f, ok := c.Action.(application.RunnerFunc); ok && f == nil {
		return &ErrInvalidConfig{field: "Action", reason: "is a nil function"}
	}

	if c.MaxRetryAttempts < NoRetries {
		return &ErrInvalidConfig{field: "MaxRetryAttempts", reason: fmt.Sprintf("must be positive, zero or NoRetries, got %d", c.MaxRetryAttempts)}
	}

	if c.RetryDelay < 0 {
		return &ErrInvalidConfig{field: "RetryDelay", reason: fmt.Sprintf("must not be negative, got %s", c.RetryDelay)}
	}

	if c.WindowPolicy != RestartWindow && c.WindowPolicy != KeepWindow {
		return &ErrInvalidConfig{field: "WindowPolicy", reason: fmt.Sprintf("unknown policy %d", int(c.WindowPolicy))}
	}

	return nil
}

func (c Config) withDefaults() Config {
	switch c.MaxRetryAttempts {
	case 0:
		c.MaxRetryAttempts = DefaultMaxRetryAttempts
	case NoRetries:
		c.MaxRetryAttempts = 0
	}

	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}

	if c.Observer == nil {
		c.Observer = ObserverFuncs{}
	}
	c.Observer = recoveringObserver{c.Observer}

	return c
}
