package log

import (
	"context"
	"math/rand/v2"
	"time"
)

// AttemptsAttr is the event attribute holding the number of attempts a firing took.
const AttemptsAttr = "firing.attempts"

// Sampler decides whether a wide event should be emitted.
type Sampler interface {
	ShouldSample(ctx context.Context, e *Event) bool
}

// SamplerFunc is a function adapter for Sampler.
type SamplerFunc func(ctx context.Context, e *Event) bool

// ShouldSample implements Sampler.
func (f SamplerFunc) ShouldSample(ctx context.Context, e *Event) bool {
	return f(ctx, e)
}

// DefaultSampler keeps failed, slow and retried firings and a random share of the rest.
type DefaultSampler struct {
	slowThreshold       time.Duration
	keepAttemptsAtLeast int
	randomKeepRate      float64
}

// NewDefaultSampler creates a rule-based sampler. Firings that needed at least
// keepAttemptsAtLeast attempts are always kept; zero disables that rule.
func NewDefaultSampler(slowThreshold time.Duration, keepAttemptsAtLeast int, randomKeepRate float64) *DefaultSampler {
	return &DefaultSampler{
		slowThreshold:       slowThreshold,
		keepAttemptsAtLeast: keepAttemptsAtLeast,
		randomKeepRate:      randomKeepRate,
	}
}

// ShouldSample decides if event should be logged.
func (s *DefaultSampler) ShouldSample(_ context.Context, e *Event) bool {
	if e.HasErrors() {
		return true
	}

	if s.slowThreshold > 0 && e.Duration() >= s.slowThreshold {
		return true
	}

	if s.keepAttemptsAtLeast > 0 {
		if value, exists := e.Attr(AttemptsAttr); exists {
			if attempts, ok := value.(int); ok && attempts >= s.keepAttemptsAtLeast {
				return true
			}
		}
	}

	//nolint:gosec // Non-cryptographic sampling is sufficient for log event retention.
	return rand.Float64() < s.randomKeepRate
}
