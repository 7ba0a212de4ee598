package fetcher

import (
	"sync"
	"time"

	"github.com/careercrawl/orchestrator/internal/clock"
	"github.com/careercrawl/orchestrator/internal/errs"
)

// circuitState mirrors the classic closed/open/half-open machine. Not
// present in the teacher (its crawler package has no breaker); added new
// per spec.md §4.1's explicit per-host circuit requirement, shaped after
// the teacher's general preference for small explicit state-machine types
// (see orchestrator.RunPhase) rather than a generic library.
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

type hostCircuit struct {
	state          circuitState
	failures       int
	windowStart    time.Time
	openedAt       time.Time
	halfOpenInUse  bool
}

// circuitBreaker tracks one hostCircuit per host: F consecutive failures
// within window T trips the breaker open for coolOff, after which a
// single half-open probe is admitted.
type circuitBreaker struct {
	mu        sync.Mutex
	hosts     map[string]*hostCircuit
	threshold int
	window    time.Duration
	coolOff   time.Duration
	clk       clock.Clock
}

func newCircuitBreaker(threshold int, window, coolOff time.Duration, clk clock.Clock) *circuitBreaker {
	return &circuitBreaker{
		hosts:     make(map[string]*hostCircuit),
		threshold: threshold,
		window:    window,
		coolOff:   coolOff,
		clk:       clk,
	}
}

func (cb *circuitBreaker) circuitFor(host string) *hostCircuit {
	c, ok := cb.hosts[host]
	if !ok {
		c = &hostCircuit{state: circuitClosed}
		cb.hosts[host] = c
	}
	return c
}

// Admit reports whether a request to host may proceed. A half-open probe
// is admitted at most once until it resolves via RecordSuccess/RecordFailure.
func (cb *circuitBreaker) Admit(host string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.circuitFor(host)
	now := cb.clk.Now()

	switch c.state {
	case circuitClosed:
		return nil
	case circuitOpen:
		if now.Sub(c.openedAt) < cb.coolOff {
			return errs.ErrCircuitOpen
		}
		c.state = circuitHalfOpen
		c.halfOpenInUse = true
		return nil
	case circuitHalfOpen:
		if c.halfOpenInUse {
			return errs.ErrCircuitOpen
		}
		c.halfOpenInUse = true
		return nil
	}
	return nil
}

// RecordSuccess closes the circuit and resets failure bookkeeping.
func (cb *circuitBreaker) RecordSuccess(host string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.circuitFor(host)
	c.state = circuitClosed
	c.failures = 0
	c.halfOpenInUse = false
}

// RecordFailure counts a failure against host's window; threshold
// consecutive failures within window trips the breaker open. A failure
// while half-open re-opens immediately.
func (cb *circuitBreaker) RecordFailure(host string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.circuitFor(host)
	now := cb.clk.Now()

	if c.state == circuitHalfOpen {
		c.state = circuitOpen
		c.openedAt = now
		c.failures = 0
		c.halfOpenInUse = false
		return
	}

	if c.windowStart.IsZero() || now.Sub(c.windowStart) > cb.window {
		c.windowStart = now
		c.failures = 0
	}
	c.failures++

	if c.failures >= cb.threshold {
		c.state = circuitOpen
		c.openedAt = now
	}
}
