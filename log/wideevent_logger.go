package log

import (
	"context"
	"io"
	"log/slog"
)

// WideEventLogger writes one line per finished Event, keeping only what its
// Sampler selects. A nil *WideEventLogger discards everything.
type WideEventLogger struct {
	sampler Sampler
	logger  *slog.Logger
}

// NewWideEventLogger creates a wide-event logger writing json or text lines to w.
// A nil sampler keeps every event. Values of contextKeys found in the write
// context are added to each line, like the ones Setup installs.
func NewWideEventLogger(w io.Writer, s Sampler, format string, contextKeys map[string]any) *WideEventLogger {
	opts := &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: dropTimeAndMessage,
	}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &WideEventLogger{
		sampler: s,
		logger:  slog.New(&contextHandler{handler, contextKeys}),
	}
}

// WriteEvent finishes e and writes it at the event's own level unless the
// sampler drops it. It reports whether a line was written.
func (l *WideEventLogger) WriteEvent(ctx context.Context, e *Event) bool {
	if l == nil || e == nil {
		return false
	}

	e.Finish()

	if l.sampler != nil && !l.sampler.ShouldSample(ctx, e) {
		return false
	}

	l.logger.LogAttrs(ctx, e.Level(), "", e.ToAttrs()...)

	return true
}

// The event carries its own timestamp and has no message.
func dropTimeAndMessage(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey || a.Key == slog.MessageKey {
		return slog.Attr{}
	}

	return a
}
