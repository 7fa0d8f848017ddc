package httpserver

import (
	"net/http"
	"runtime/debug"

	"github.com/platforma-dev/keepalive/log"
)

// Middleware wraps an http.Handler.
type Middleware interface {
	Wrap(http.Handler) http.Handler
}

// MiddlewareFunc adapts a function to the Middleware interface.
type MiddlewareFunc func(http.Handler) http.Handler

// Wrap calls f(h).
func (f MiddlewareFunc) Wrap(h http.Handler) http.Handler {
	return f(h)
}

func wrap(h http.Handler, middlewares []Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i].Wrap(h)
	}
	return h
}

// RecoverMiddleware turns handler panics into 500 responses.
type RecoverMiddleware struct{}

// NewRecoverMiddleware returns a new RecoverMiddleware.
func NewRecoverMiddleware() *RecoverMiddleware {
	return &RecoverMiddleware{}
}

// Wrap recovers panics of h.
func (m *RecoverMiddleware) Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler { //nolint:errorlint
					panic(rec)
				}

				log.ErrorContext(r.Context(), "panic in http handler", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		h.ServeHTTP(w, r)
	})
}
