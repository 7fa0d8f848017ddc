package keepalive

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ErrInvalidConfig.
	ErrConfiguration = errors.New("invalid keep-alive configuration")
	// ErrExhausted matches every *ErrKeepAliveExhausted.
	ErrExhausted = errors.New("keep-alive attempts exhausted")
	// ErrStopped is returned by Trigger on a stopped scheduler.
	ErrStopped = errors.New("keep-alive scheduler is stopped")
	// ErrFiring is returned by Trigger while another firing is in progress.
	ErrFiring = errors.New("keep-alive firing already in progress")

	errActionPanicked = errors.New("keep-alive action panicked")
)

// ErrInvalidConfig reports a rejected Config field.
type ErrInvalidConfig struct {
	field  string
	reason string
}

// Error returns the formatted error message for ErrInvalidConfig.
func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.field, e.reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ErrInvalidConfig) Is(target error) bool {
	return target == ErrConfiguration
}

// Field returns the name of the rejected field.
func (e *ErrInvalidConfig) Field() string {
	return e.field
}

// ErrKeepAliveFailed is a single failed attempt of the keep-alive action.
type ErrKeepAliveFailed struct {
	attempt int
	err     error
}

// Error returns the formatted error message for ErrKeepAliveFailed.
func (e *ErrKeepAliveFailed) Error() string {
	return fmt.Sprintf("keep-alive attempt %d failed: %v", e.attempt, e.err)
}

// Unwrap returns the error returned by the action.
func (e *ErrKeepAliveFailed) Unwrap() error {
	return e.err
}

// Attempt returns the 1-based attempt number.
func (e *ErrKeepAliveFailed) Attempt() int {
	return e.attempt
}

// ErrKeepAliveExhausted is returned when every attempt of a firing failed.
// It unwraps to the last *ErrKeepAliveFailed, joined with the context error
// when the retry wait was interrupted.
type ErrKeepAliveExhausted struct {
	attempts int
	err      error
}

// Error returns the formatted error message for ErrKeepAliveExhausted.
func (e *ErrKeepAliveExhausted) Error() string {
	return fmt.Sprintf("keep-alive failed after %d attempt(s): %v", e.attempts, e.err)
}

// Unwrap returns the last failure.
func (e *ErrKeepAliveExhausted) Unwrap() error {
	return e.err
}

// Is reports whether target is ErrExhausted.
func (e *ErrKeepAliveExhausted) Is(target error) bool {
	return target == ErrExhausted
}

// Attempts returns how many times the action was invoked.
func (e *ErrKeepAliveExhausted) Attempts() int {
	return e.attempts
}
