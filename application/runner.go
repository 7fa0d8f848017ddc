package application

import (
	"context"
	"fmt"
)

// Runner is a unit of work driven by the application: a startup task, a long-running
// service or a keep-alive action.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts an ordinary function to the Runner interface.
type RunnerFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f RunnerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Healthchecker is implemented by services that expose health data.
type Healthchecker interface {
	Healthcheck(ctx context.Context) any
}

// StartupTaskConfig configures a task executed once before services start.
type StartupTaskConfig struct {
	Name         string
	AbortOnError bool
}

type startupTask struct {
	runner Runner
	config StartupTaskConfig
}

// ErrStartupTaskFailed is returned when a startup task configured with AbortOnError fails.
type ErrStartupTaskFailed struct {
	task string
	err  error
}

// Error returns the formatted error message for ErrStartupTaskFailed.
func (e *ErrStartupTaskFailed) Error() string {
	return fmt.Sprintf("startup task %q failed: %v", e.task, e.err)
}

// Unwrap returns the underlying error for ErrStartupTaskFailed.
func (e *ErrStartupTaskFailed) Unwrap() error {
	return e.err
}
