package resilience

import (
	"context"
	"errors"
	"time"
)

// Retry configures Do.
type Retry struct {
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
}

// Do runs fn until it succeeds, attempts run out or the breaker opens. The
// breaker sees every attempt. The last error is returned.
func (r Retry) Do(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("resilience: operation not provided")
	}
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if r.Breaker != nil {
			lastErr = r.Breaker.Execute(ctx, fn)
		} else {
			lastErr = fn(ctx)
		}
		if lastErr == nil || errors.Is(lastErr, ErrOpenCircuit) || attempt == attempts {
			return lastErr
		}
		timer := time.NewTimer(Backoff(r.BaseBackoff, attempt, r.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
