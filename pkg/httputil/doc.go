// Package httputil provides HTTP utilities for the registry client.
//
// # Retry
//
// A [Policy] re-runs an operation on transient failures only. Callers mark a
// failure as transient by wrapping it with [Retryable]; every other error is
// returned immediately:
//
//	p := httputil.Policy{Retries: 2, Delay: 500 * time.Millisecond}
//	err := p.Do(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// The zero Policy runs the operation exactly once, which is how palace runs
// by default: a failed fetch aborts the install instead of being retried.
package httputil
