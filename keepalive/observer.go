package keepalive

import (
	"context"

	"github.com/platforma-dev/keepalive/log"
)

// Observer is notified about firings. Methods are called from the firing
// goroutine and must not block for long. A panic in an Observer is logged and
// ignored.
type Observer interface {
	OnFiring(ctx context.Context, label string)
	OnAttemptFailed(ctx context.Context, attempt int, err error)
	OnSuccess(ctx context.Context, attempts int)
	OnExhausted(ctx context.Context, err error)
}

// ObserverFuncs implements Observer with optional callbacks. Nil fields are skipped.
type ObserverFuncs struct {
	Firing        func(ctx context.Context, label string)
	AttemptFailed func(ctx context.Context, attempt int, err error)
	Success       func(ctx context.Context, attempts int)
	Exhausted     func(ctx context.Context, err error)
}

// OnFiring implements Observer.
func (o ObserverFuncs) OnFiring(ctx context.Context, label string) {
	if o.Firing != nil {
		o.Firing(ctx, label)
	}
}

// OnAttemptFailed implements Observer.
func (o ObserverFuncs) OnAttemptFailed(ctx context.Context, attempt int, err error) {
	if o.AttemptFailed != nil {
		o.AttemptFailed(ctx, attempt, err)
	}
}

// OnSuccess implements Observer.
func (o ObserverFuncs) OnSuccess(ctx context.Context, attempts int) {
	if o.Success != nil {
		o.Success(ctx, attempts)
	}
}

// OnExhausted implements Observer.
func (o ObserverFuncs) OnExhausted(ctx context.Context, err error) {
	if o.Exhausted != nil {
		o.Exhausted(ctx, err)
	}
}

// recoveringObserver keeps a panicking Observer from taking down the timer goroutine.
type recoveringObserver struct {
	next Observer
}

func (o recoveringObserver) OnFiring(ctx context.Context, label string) {
	defer recoverObserver(ctx, "OnFiring")
	o.next.OnFiring(ctx, label)
}

func (o recoveringObserver) OnAttemptFailed(ctx context.Context, attempt int, err error) {
	defer recoverObserver(ctx, "OnAttemptFailed")
	o.next.OnAttemptFailed(ctx, attempt, err)
}

func (o recoveringObserver) OnSuccess(ctx context.Context, attempts int) {
	defer recoverObserver(ctx, "OnSuccess")
	o.next.OnSuccess(ctx, attempts)
}

func (o recoveringObserver) OnExhausted(ctx context.Context, err error) {
	defer recoverObserver(ctx, "OnExhausted")
	o.next.OnExhausted(ctx, err)
}

func recoverObserver(ctx context.Context, method string) {
	if r := recover(); r != nil {
		log.ErrorContext(ctx, "keep-alive observer panicked", "method", method, "panic", r)
	}
}
