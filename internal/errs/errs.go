// Package errs defines the sentinel error kinds that flow out of the
// fetcher, job store, ranker, and control surface so callers can branch
// with errors.Is/errors.As instead of matching on error strings.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimitedLocal is returned by the fetcher when a token-bucket
	// reservation would exceed the configured wait bound W.
	ErrRateLimitedLocal = errors.New("fetcher: rate limited locally")

	// ErrCircuitOpen is returned when a host's circuit breaker is open.
	ErrCircuitOpen = errors.New("fetcher: circuit open")

	// ErrRobotsDisallow is returned when robots.txt disallows the path.
	ErrRobotsDisallow = errors.New("fetcher: disallowed by robots.txt")

	// ErrTimeout is returned when a request attempt exceeds its timeout.
	ErrTimeout = errors.New("fetcher: request timed out")

	// ErrTransport is returned for non-HTTP network failures.
	ErrTransport = errors.New("fetcher: transport error")

	// ErrMalformedResponse is returned when a response body cannot be
	// parsed into the expected shape (JSON postings, extraction result).
	ErrMalformedResponse = errors.New("adapter: malformed response")

	// ErrStoreConflict is returned internally when a uniqueness race is
	// detected; callers recover by re-reading and treating it as unchanged.
	ErrStoreConflict = errors.New("store: uniqueness conflict")

	// ErrStoreUnavailable means the store cannot serve requests at all.
	ErrStoreUnavailable = errors.New("store: unavailable")

	// ErrBusy is returned by the control surface when a run is already
	// active and a new trigger is rejected.
	ErrBusy = errors.New("orchestrator: busy")

	// ErrNotRunning is returned by Cancel when there is no active run.
	ErrNotRunning = errors.New("orchestrator: not running")

	// ErrInvalid is returned for invalid control-surface arguments (e.g.
	// an interval below the 1 minute floor).
	ErrInvalid = errors.New("invalid argument")

	// ErrCancelled marks cooperative cancellation observed at a
	// suspension point. Never surfaces past the orchestrator's public API.
	ErrCancelled = errors.New("cancelled")
)

// HTTPStatusError wraps a non-2xx HTTP response status so callers can
// distinguish retryable from terminal status codes with errors.As.
type HTTPStatusError struct {
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("fetcher: http status %d", e.Code)
}

// Retryable reports whether this status code belongs to the retryable set
// {408, 425, 429, 5xx} per the fetcher's retry policy.
func (e *HTTPStatusError) Retryable() bool {
	switch e.Code {
	case 408, 425, 429:
		return true
	}
	return e.Code >= 500 && e.Code < 600
}
