// Package retry runs an operation under a bounded exponential backoff
// policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy bounds a retry loop: at most MaxAttempts calls, waiting
// BaseDelay after the first failure and multiplying the wait by
// Multiplier after each further one.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration // zero means unbounded
}

// DefaultPolicy is five attempts starting at 100ms and doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		Multiplier:  2.0,
	}
}

// Validate rejects policies that would never run or never back off.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("retry: base delay must not be negative, got %s", p.BaseDelay)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("retry: multiplier must be >= 1, got %g", p.Multiplier)
	}
	return nil
}

// Delays returns the waits between consecutive attempts. There are
// MaxAttempts-1 of them.
func (p Policy) Delays() []time.Duration {
	if p.MaxAttempts <= 1 {
		return nil
	}
	out := make([]time.Duration, 0, p.MaxAttempts-1)
	delay := p.BaseDelay
	for i := 1; i < p.MaxAttempts; i++ {
		out = append(out, delay)
		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return out
}

// permanent marks an error that must not be retried.
type permanent struct{ err error }

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it immediately without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retrier executes operations under a Policy.
type Retrier struct {
	policy Policy
	sleep  Sleeper
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithSleeper replaces the wait between attempts. Tests use it to avoid
// real delays.
func WithSleeper(s Sleeper) Option {
	return func(r *Retrier) { r.sleep = s }
}

// New creates a Retrier for p.
func New(p Policy, opts ...Option) *Retrier {
	r := &Retrier{policy: p, sleep: sleepCtx}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Policy returns the policy in use.
func (r *Retrier) Policy() Policy { return r.policy }

// Do calls fn until it succeeds, returns a Permanent error, the context
// is cancelled, or the attempts are exhausted. fn receives the 1-based
// attempt number. The last error is returned.
func (r *Retrier) Do(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error
	delays := r.policy.Delays()
	attempts := r.policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		var p *permanent
		if errors.As(err, &p) {
			return p.err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt == attempts {
			break
		}

		if err := r.sleep(ctx, delays[attempt-1]); err != nil {
			return fmt.Errorf("retry: %w (last error: %v)", err, lastErr)
		}
	}

	return lastErr
}
