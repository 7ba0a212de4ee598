package fetcher

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/careercrawl/orchestrator/internal/errs"
)

// retryPolicy implements the exponential-backoff-with-full-jitter retry of
// spec.md §4.1, directly generalizing the teacher's crawler.RetryPolicy
// (internal/services/crawler/retry.go): same attempt-count/status-code
// loop shape, extended with Retry-After honouring and the spec's explicit
// retryable/non-retryable status sets.
type retryPolicy struct {
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// newRetryPolicy takes maxAttempts as the total number of HTTP attempts
// (1 initial attempt + retries), not a retry count - callers pass
// max_retries+1.
func newRetryPolicy(maxAttempts int, initial, max time.Duration) *retryPolicy {
	return &retryPolicy{
		maxAttempts:    maxAttempts,
		initialBackoff: initial,
		maxBackoff:     max,
	}
}

// retryableStatus reports whether a status code belongs to the retryable
// set {408, 425, 429, 5xx}; the complement {400,401,403,404,410,422} (and
// any other 4xx) is terminal.
func retryableStatus(code int) bool {
	switch code {
	case 408, 425, 429:
		return true
	}
	return code >= 500 && code < 600
}

func retryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// backoff computes full-jitter exponential backoff for the given attempt
// (0-indexed), doubling from initialBackoff and capping at maxBackoff.
func (p *retryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.initialBackoff)
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	if d > float64(p.maxBackoff) {
		d = float64(p.maxBackoff)
	}
	// Full jitter: uniform in [0, d].
	return time.Duration(rand.Float64() * d)
}

// retryAfterOrBackoff clamps an HTTP Retry-After hint to maxBackoff when
// present, else falls back to computed exponential backoff.
func (p *retryPolicy) retryAfterOrBackoff(attempt int, retryAfter time.Duration, hasRetryAfter bool) time.Duration {
	if hasRetryAfter {
		if retryAfter > p.maxBackoff {
			return p.maxBackoff
		}
		return retryAfter
	}
	return p.backoff(attempt)
}

// attemptResult is what one raw attempt (Fetcher.attempt) reports back to the
// retry loop.
type attemptResult struct {
	body          []byte
	statusCode    int
	err           error
	retryAfter    time.Duration
	hasRetryAfter bool
}

// executeWithRetry runs fn up to maxAttempts times, sleeping between
// attempts per the backoff policy, and stops immediately on a
// non-retryable outcome.
func (p *retryPolicy) executeWithRetry(ctx context.Context, logger arbor.ILogger, fn func(ctx context.Context) attemptResult) attemptResult {
	var last attemptResult

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		last = fn(ctx)

		if last.err == nil && !retryableStatus(last.statusCode) {
			return last
		}

		shouldRetry := false
		if last.statusCode > 0 {
			shouldRetry = retryableStatus(last.statusCode)
		} else if last.err != nil {
			shouldRetry = retryableError(last.err)
		}

		if !shouldRetry {
			return last
		}

		if attempt == p.maxAttempts-1 {
			break
		}

		wait := p.retryAfterOrBackoff(attempt, last.retryAfter, last.hasRetryAfter)
		logger.Debug().
			Int("attempt", attempt+1).
			Int("status_code", last.statusCode).
			Err(last.err).
			Dur("backoff", wait).
			Msg("retrying fetch after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			last.err = ctx.Err()
			return last
		case <-timer.C:
		}
	}

	logger.Warn().
		Int("max_attempts", p.maxAttempts).
		Int("status_code", last.statusCode).
		Err(last.err).
		Msg("fetch retries exhausted")

	return last
}

// classifyStatus turns a terminal non-2xx status into the right errs kind.
func classifyStatus(code int) error {
	if code >= 200 && code < 300 {
		return nil
	}
	return &errs.HTTPStatusError{Code: code}
}
