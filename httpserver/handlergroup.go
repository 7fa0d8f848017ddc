package httpserver

import (
	"net/http"
	"sync"
)

// HandlerGroup is a set of handlers sharing middlewares, mounted with HTTPServer.HandleGroup.
type HandlerGroup struct {
	mux *http.ServeMux

	mu          sync.Mutex
	middlewares []Middleware
}

// NewHandlerGroup creates an empty handler group.
func NewHandlerGroup() *HandlerGroup {
	return &HandlerGroup{mux: http.NewServeMux()}
}

// Handle registers handler for pattern.
func (g *HandlerGroup) Handle(pattern string, handler http.Handler) {
	g.mux.Handle(pattern, handler)
}

// HandleFunc registers handler function for pattern.
func (g *HandlerGroup) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	g.mux.HandleFunc(pattern, handler)
}

// Use appends middlewares applied to every handler of the group.
func (g *HandlerGroup) Use(middlewares ...Middleware) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.middlewares = append(g.middlewares, middlewares...)
}

// UseFunc appends middleware functions.
func (g *HandlerGroup) UseFunc(middlewares ...func(http.Handler) http.Handler) {
	for _, m := range middlewares {
		g.Use(MiddlewareFunc(m))
	}
}

// ServeHTTP serves r through the group middlewares.
func (g *HandlerGroup) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	handler := wrap(g.mux, g.middlewares)
	g.mu.Unlock()

	handler.ServeHTTP(w, r)
}
