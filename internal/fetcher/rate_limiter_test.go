package fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careercrawl/orchestrator/internal/errs"
)

func TestHostRateLimiter_AllowsBurstThenLimits(t *testing.T) {
	limiter := newHostRateLimiter(1, 2, 50*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background(), "https://example.com/a"))
	require.NoError(t, limiter.Wait(context.Background(), "https://example.com/b"))

	err := limiter.Wait(context.Background(), "https://example.com/c")
	assert.ErrorIs(t, err, errs.ErrRateLimitedLocal)
}

func TestHostRateLimiter_SeparateHostsIndependent(t *testing.T) {
	limiter := newHostRateLimiter(1, 1, 10*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background(), "https://a.example.com/"))
	require.NoError(t, limiter.Wait(context.Background(), "https://b.example.com/"))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "example.com", hostOf("https://example.com/path?x=1"))
	assert.Equal(t, "", hostOf("::not a url::"))
}
