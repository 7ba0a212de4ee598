package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careercrawl/orchestrator/internal/clock"
	"github.com/careercrawl/orchestrator/internal/errs"
)

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	fake := clock.NewFake(time.Now())
	cb := newCircuitBreaker(3, time.Minute, 30*time.Second, fake)

	for i := 0; i < 3; i++ {
		require.NoError(t, cb.Admit("example.com"))
		cb.RecordFailure("example.com")
	}

	err := cb.Admit("example.com")
	assert.ErrorIs(t, err, errs.ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenAfterCoolOff(t *testing.T) {
	fake := clock.NewFake(time.Now())
	cb := newCircuitBreaker(2, time.Minute, 10*time.Second, fake)

	require.NoError(t, cb.Admit("example.com"))
	cb.RecordFailure("example.com")
	require.NoError(t, cb.Admit("example.com"))
	cb.RecordFailure("example.com")

	require.ErrorIs(t, cb.Admit("example.com"), errs.ErrCircuitOpen)

	fake.Advance(11 * time.Second)

	require.NoError(t, cb.Admit("example.com"))
	// A second concurrent probe must be rejected until the first resolves.
	assert.ErrorIs(t, cb.Admit("example.com"), errs.ErrCircuitOpen)

	cb.RecordSuccess("example.com")
	assert.NoError(t, cb.Admit("example.com"))
}

func TestCircuitBreaker_FailureDuringHalfOpenReopens(t *testing.T) {
	fake := clock.NewFake(time.Now())
	cb := newCircuitBreaker(1, time.Minute, 5*time.Second, fake)

	require.NoError(t, cb.Admit("example.com"))
	cb.RecordFailure("example.com")
	require.ErrorIs(t, cb.Admit("example.com"), errs.ErrCircuitOpen)

	fake.Advance(6 * time.Second)
	require.NoError(t, cb.Admit("example.com"))
	cb.RecordFailure("example.com")

	assert.ErrorIs(t, cb.Admit("example.com"), errs.ErrCircuitOpen)
}

func TestCircuitBreaker_WindowResetsStaleFailures(t *testing.T) {
	fake := clock.NewFake(time.Now())
	cb := newCircuitBreaker(2, 5*time.Second, 10*time.Second, fake)

	require.NoError(t, cb.Admit("example.com"))
	cb.RecordFailure("example.com")

	fake.Advance(6 * time.Second)

	require.NoError(t, cb.Admit("example.com"))
	cb.RecordFailure("example.com")

	assert.NoError(t, cb.Admit("example.com"))
}
