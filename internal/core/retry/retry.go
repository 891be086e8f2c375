// Package retry provides the backoff executor wrapped around fallible
// operations, plus an HTTP helper that treats selected response statuses
// as transient.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Hardcoded fallbacks, overridable by configuration and then by explicit
// call-site options, in that order of increasing precedence.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 500 * time.Millisecond
	DefaultMaxDelay  = 5 * time.Second
	DefaultJitter    = 200 * time.Millisecond
)

// Options tunes one retried operation. Zero fields fall back to the
// package defaults.
type Options struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    time.Duration

	// Retryable classifies an error as transient. Nil means every error
	// is retryable, matching callers that pass a broad exception set.
	Retryable func(error) bool

	// OnRetry is invoked after a retryable failure, before the sleep.
	OnRetry func(attempt int, err error)

	// Rand is injectable for tests.
	Rand *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.Jitter < 0 {
		o.Jitter = 0
	}
	return o
}

// PermanentError wraps an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable regardless of the classifier.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Do runs op up to opts.Attempts times with exponential backoff and
// jitter between attempts. A non-retryable error surfaces immediately;
// the final attempt's error surfaces without a trailing delay. The
// context is checked before every attempt and honored during sleeps, so
// cancellation aborts the remaining retries promptly.
func Do[T any](ctx context.Context, op func() (T, error), opts Options) (T, error) {
	var zero T

	opts = opts.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		var permanent *PermanentError
		if errors.As(err, &permanent) {
			return zero, permanent.Err
		}
		if opts.Retryable != nil && !opts.Retryable(err) {
			return zero, err
		}

		if attempt >= opts.Attempts {
			break
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}

		if err := sleep(ctx, backoffDelay(opts, attempt)); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("retry exhausted after %d attempts: %w", opts.Attempts, lastErr)
}

func backoffDelay(opts Options, attempt int) time.Duration {
	delay := opts.BaseDelay << (attempt - 1)
	if delay > opts.MaxDelay || delay <= 0 {
		delay = opts.MaxDelay
	}
	if opts.Jitter > 0 {
		delay += time.Duration(opts.intn(int(opts.Jitter)))
	}
	return delay
}

func (o Options) intn(n int) int {
	if n <= 0 {
		return 0
	}
	if o.Rand != nil {
		return o.Rand.Intn(n)
	}
	return rand.Intn(n)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
