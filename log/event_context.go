package log

import "context"

const (
	// WideEventKey is the default context key for the wide event of a keep-alive firing.
	WideEventKey contextKey = "wideEvent"
)

// WithEvent stores a wide event in context.
func WithEvent(ctx context.Context, e *Event) context.Context {
	return context.WithValue(ctx, WideEventKey, e)
}

// EventFromContext returns a wide event from context when present.
func EventFromContext(ctx context.Context) *Event {
	event, ok := ctx.Value(WideEventKey).(*Event)
	if !ok {
		return nil
	}

	return event
}
