package keepalive

import (
	"net/http"
	"strings"
)

// ActivityMiddleware registers activity for every incoming request.
type ActivityMiddleware struct {
	scheduler      *Scheduler
	ignorePaths    map[string]struct{}
	ignorePrefixes []string
}

// Middleware returns an ActivityMiddleware bound to s. Requests for ignorePaths,
// such as health checks, are passed through without registering activity.
// A path ending in "/" ignores the whole subtree, like http.ServeMux patterns.
func (s *Scheduler) Middleware(ignorePaths ...string) *ActivityMiddleware {
	m := &ActivityMiddleware{scheduler: s, ignorePaths: make(map[string]struct{}, len(ignorePaths))}

	for _, path := range ignorePaths {
		if strings.HasSuffix(path, "/") {
			m.ignorePrefixes = append(m.ignorePrefixes, path)
			continue
		}
		m.ignorePaths[path] = struct{}{}
	}

	return m
}

// Wrap registers activity on request receipt and then always calls h.
func (m *ActivityMiddleware) Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.ignored(r.URL.Path) {
			m.scheduler.RegisterActivity()
		}

		h.ServeHTTP(w, r)
	})
}

func (m *ActivityMiddleware) ignored(path string) bool {
	if _, ok := m.ignorePaths[path]; ok {
		return true
	}

	for _, prefix := range m.ignorePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}
