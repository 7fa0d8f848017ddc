// Package application wires startup tasks and long-running services into one lifecycle.
package application

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/platforma-dev/keepalive/log"
)

// Application manages startup tasks and services for the application lifecycle.
type Application struct {
	mu             sync.Mutex
	startupTasks   []startupTask
	services       map[string]Runner
	healthcheckers map[string]Healthchecker
	health         *Health
}

// New creates and returns a new Application instance.
func New() *Application {
	return &Application{
		services:       make(map[string]Runner),
		healthcheckers: make(map[string]Healthchecker),
		health:         NewHealth(),
	}
}

// Health returns a snapshot of the current health status of the application.
func (a *Application) Health(ctx context.Context) *Health {
	a.mu.Lock()
	healthcheckers := make(map[string]Healthchecker, len(a.healthcheckers))
	for name, hc := range a.healthcheckers {
		healthcheckers[name] = hc
	}
	a.mu.Unlock()

	for hcName, hc := range healthcheckers {
		a.health.SetServiceData(hcName, hc.Healthcheck(ctx))
	}

	return a.health.Snapshot()
}

// OnStart registers a new startup task with the given runner and configuration.
func (a *Application) OnStart(task Runner, config StartupTaskConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.startupTasks = append(a.startupTasks, startupTask{task, config})
}

// OnStartFunc registers a function as a startup task.
func (a *Application) OnStartFunc(task RunnerFunc, config StartupTaskConfig) {
	a.OnStart(task, config)
}

// RegisterService adds a named service to the application.
// Services implementing Healthchecker contribute data to the health report.
func (a *Application) RegisterService(serviceName string, service Runner) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.services[serviceName] = service
	a.health.AddService(serviceName)

	if healthcheckerService, ok := service.(Healthchecker); ok {
		a.healthcheckers[serviceName] = healthcheckerService
	} else {
		delete(a.healthcheckers, serviceName)
	}
}

// Run executes startup tasks in registration order and then runs every service
// until ctx is canceled or the process receives SIGINT/SIGTERM.
func (a *Application) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.mu.Lock()
	tasks := append([]startupTask(nil), a.startupTasks...)
	services := make(map[string]Runner, len(a.services))
	for name, service := range a.services {
		services[name] = service
	}
	a.mu.Unlock()

	log.InfoContext(ctx, "starting application", "startupTasks", len(tasks), "services", len(services))

	for i, task := range tasks {
		log.InfoContext(ctx, "running task", "task", task.config.Name, "index", i)

		taskCtx := context.WithValue(ctx, log.StartupTaskKey, task.config.Name)

		err := task.runner.Run(taskCtx)
		if err != nil {
			log.ErrorContext(taskCtx, "error in startup task", "error", err)

			if task.config.AbortOnError {
				return &ErrStartupTaskFailed{task: task.config.Name, err: err}
			}
		}
	}

	var wg sync.WaitGroup

	for serviceName, service := range services {
		wg.Add(1)

		serviceCtx := context.WithValue(ctx, log.ServiceNameKey, serviceName)

		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.health.FailService(serviceName, errServicePanicked)
					log.ErrorContext(serviceCtx, "service panicked", "panic", r)
				}
			}()

			log.InfoContext(serviceCtx, "starting service")
			a.health.StartService(serviceName)

			err := service.Run(serviceCtx)
			switch {
			case err == nil, errors.Is(err, context.Canceled):
				a.health.StopService(serviceName)
				log.InfoContext(serviceCtx, "service stopped")
			default:
				a.health.FailService(serviceName, err)
				log.ErrorContext(serviceCtx, "error in service", "error", err)
			}
		}()
	}

	a.health.StartApplication()

	wg.Wait()

	log.InfoContext(ctx, "application stopped")

	return nil
}

var errServicePanicked = errors.New("service panicked")
