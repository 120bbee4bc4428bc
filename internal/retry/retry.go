// Package retry wraps outbound calls to unreliable services with
// deterministic exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy governs a single Do invocation. A fresh value is provided per call
// site; it is never shared or mutated.
type Policy struct {
	MaxRetries    int
	BaseDelay     time.Duration
	BackoffFactor float64

	// OnRetry, if set, is invoked before each re-attempt with the zero-based
	// attempt number that just failed, the delay about to be waited, and the
	// error that triggered the retry.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DelayFor returns the backoff delay applied after attempt (zero-based)
// fails: BaseDelay * BackoffFactor^attempt, floored to the nearest integer
// duration unit. No jitter; the schedule is reproducible.
func (p Policy) DelayFor(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 0; i < attempt; i++ {
		d *= p.BackoffFactor
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not retryable. Do stops immediately and returns the
// underlying error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries the Permanent marker. Do strips
// the marker before returning, so this is only meaningful on errors that have
// not yet passed through Do.
func IsPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm)
}

// Do runs op until it succeeds or attempt MaxRetries fails, waiting the
// policy's backoff delay between attempts. The final error propagates
// unchanged. A zero delay still goes through the timer so the goroutine
// yields rather than retrying in place.
//
// Cancelling ctx during a backoff wait aborts with ctx.Err(); an operation
// already dispatched is never interrupted by Do itself.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}

		if attempt >= policy.MaxRetries {
			return zero, err
		}

		delay := policy.DelayFor(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}
}
