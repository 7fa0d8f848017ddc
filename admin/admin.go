// Package admin exposes keep-alive schedulers over HTTP: stats, manual trigger,
// counter reset, stop and start.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/platforma-dev/keepalive/httpserver"
	"github.com/platforma-dev/keepalive/keepalive"
	"github.com/platforma-dev/keepalive/log"
)

// Scheduler is the part of keepalive.Scheduler driven by the admin API.
type Scheduler interface {
	Label() string
	Stats() keepalive.Stats
	Trigger(ctx context.Context) error
	ResetActivityCount()
	Stop()
	Start()
}

var (
	errUnknownScheduler = errors.New("unknown scheduler")
	errLabelRequired    = errors.New("label is required when more than one scheduler is registered")
	errUnauthorized     = errors.New("unauthorized")
	errEmptyToken       = errors.New("token must not be empty")
)

// Admin serves the admin API. Mount HandleGroup on the host server; it is already
// protected by Middleware.
type Admin struct {
	HandleGroup *httpserver.HandlerGroup
	Middleware  *AuthMiddleware

	labels     []string
	schedulers map[string]Scheduler
}

// New creates the admin API for schedulers. tokenHash is a bcrypt hash of the bearer
// token; an empty hash disables authentication.
func New(tokenHash string, schedulers ...Scheduler) *Admin {
	a := &Admin{
		HandleGroup: httpserver.NewHandlerGroup(),
		Middleware:  NewAuthMiddleware(tokenHash),
		schedulers:  make(map[string]Scheduler, len(schedulers)),
	}

	for _, s := range schedulers {
		a.labels = append(a.labels, s.Label())
		a.schedulers[s.Label()] = s
	}
	slices.Sort(a.labels)

	a.HandleGroup.Use(a.Middleware)
	a.HandleGroup.HandleFunc("GET /stats", a.handleStats)
	a.HandleGroup.HandleFunc("POST /trigger", a.handleTrigger)
	a.HandleGroup.HandleFunc("POST /reset", a.command(Scheduler.ResetActivityCount, "activity count reset"))
	a.HandleGroup.HandleFunc("POST /stop", a.command(Scheduler.Stop, "scheduler stopped"))
	a.HandleGroup.HandleFunc("POST /start", a.command(Scheduler.Start, "scheduler started"))

	return a
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *Admin) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("label") == "" {
		stats := make([]keepalive.Stats, 0, len(a.labels))
		for _, label := range a.labels {
			stats = append(stats, a.schedulers[label].Stats())
		}
		writeJSON(r.Context(), w, http.StatusOK, stats)
		return
	}

	s, err := a.scheduler(r)
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, s.Stats())
}

func (a *Admin) handleTrigger(w http.ResponseWriter, r *http.Request) {
	s, err := a.scheduler(r)
	if err != nil {
		writeError(r.Context(), w, statusFor(err), err)
		return
	}

	log.InfoContext(r.Context(), "manual keep-alive trigger", "label", s.Label())

	err = s.Trigger(r.Context())
	switch {
	case err == nil:
		writeJSON(r.Context(), w, http.StatusOK, s.Stats())
	case errors.Is(err, keepalive.ErrStopped), errors.Is(err, keepalive.ErrFiring):
		writeError(r.Context(), w, http.StatusConflict, err)
	default:
		writeError(r.Context(), w, http.StatusBadGateway, err)
	}
}

func (a *Admin) command(apply func(Scheduler), message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := a.scheduler(r)
		if err != nil {
			writeError(r.Context(), w, statusFor(err), err)
			return
		}

		apply(s)
		log.InfoContext(r.Context(), message, "label", s.Label())

		writeJSON(r.Context(), w, http.StatusOK, s.Stats())
	}
}

// scheduler resolves the label query parameter. It may be omitted with a single scheduler.
func (a *Admin) scheduler(r *http.Request) (Scheduler, error) {
	label := r.URL.Query().Get("label")
	if label == "" {
		if len(a.labels) != 1 {
			return nil, errLabelRequired
		}
		label = a.labels[0]
	}

	s, ok := a.schedulers[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownScheduler, label)
	}

	return s, nil
}

func statusFor(err error) int {
	if errors.Is(err, errLabelRequired) {
		return http.StatusBadRequest
	}
	return http.StatusNotFound
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.ErrorContext(ctx, "failed to encode admin response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	writeJSON(ctx, w, status, errorResponse{Error: err.Error()})
}
