package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a failure as transient. Only errors carrying this
// type anywhere in their chain are retried by [Policy.Do].
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is wrapped in a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Policy describes how an operation is retried.
type Policy struct {
	Retries  int           // Extra attempts after the first; zero runs once
	Delay    time.Duration // Wait before the first retry; doubles afterwards
	MaxDelay time.Duration // Upper bound on the wait; zero means unbounded

	// OnRetry is called before each retry with the 1-based number of the
	// attempt that failed.
	OnRetry func(attempt int, err error)
}

// Do runs fn until it succeeds, fails permanently, or the policy's retries
// are exhausted. The last error is returned, or ctx.Err() when ctx ends
// while waiting.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	delay := p.Delay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsRetryable(err) || attempt > p.Retries {
			return err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
