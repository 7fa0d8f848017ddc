package log

import (
	"fmt"
	"net/http"
)

const defaultWideEventName = "http.request"

// WideEventMiddleware writes one wide event per request. keepalived uses it to
// audit admin API calls.
type WideEventMiddleware struct {
	logger    *WideEventLogger
	eventName string
}

// NewWideEventMiddleware creates middleware that stores a wide event in request context
// and writes it after request processing. Responses with status 400 and above are
// recorded as event errors, so the default sampler always keeps them.
func NewWideEventMiddleware(logger *WideEventLogger, eventName string) *WideEventMiddleware {
	if eventName == "" {
		eventName = defaultWideEventName
	}

	return &WideEventMiddleware{logger: logger, eventName: eventName}
}

// Wrap creates the request event, stores it in context and writes it after handling.
func (m *WideEventMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event := NewEvent(m.eventName)
		event.AddAttrs(map[string]any{
			"request.method":     r.Method,
			"request.path":       r.URL.Path,
			"request.remoteAddr": r.RemoteAddr,
		})
		if label := r.URL.Query().Get("label"); label != "" {
			event.AddAttrs(map[string]any{"scheduler.label": label})
		}

		ctx := WithEvent(r.Context(), event)
		r = r.WithContext(ctx)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			recovered := recover()
			if recovered != nil {
				event.AddError(fmt.Errorf("panic: %v", recovered))
				if !recorder.wroteHeader {
					recorder.status = http.StatusInternalServerError
				}
			} else if recorder.status >= http.StatusBadRequest {
				event.AddError(fmt.Errorf("request finished with status %d", recorder.status))
			}

			event.AddAttrs(map[string]any{"request.status": recorder.status})
			m.logger.WriteEvent(ctx, event)

			if recovered != nil {
				panic(recovered)
			}
		}()

		next.ServeHTTP(recorder, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	return w.ResponseWriter.Write(p)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
