package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careercrawl/orchestrator/internal/clock"
)

func TestRobotsGate_DisallowedPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /careers/private\n"))
	}))
	defer srv.Close()

	gate := newRobotsGate(true, time.Hour, "careercrawl/1.0", srv.Client(), clock.NewFake(time.Now()))

	allowed, _, err := gate.Allowed(context.Background(), srv.URL+"/careers/private/123")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, _, err = gate.Allowed(context.Background(), srv.URL+"/careers/public/123")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRobotsGate_LongerAllowOverridesDisallow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /careers\nAllow: /careers/public\n"))
	}))
	defer srv.Close()

	gate := newRobotsGate(true, time.Hour, "careercrawl/1.0", srv.Client(), clock.NewFake(time.Now()))

	allowed, _, err := gate.Allowed(context.Background(), srv.URL+"/careers/public/1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = gate.Allowed(context.Background(), srv.URL+"/careers/internal")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRobotsGate_DisabledAlwaysAllows(t *testing.T) {
	gate := newRobotsGate(false, time.Hour, "careercrawl/1.0", http.DefaultClient, clock.NewFake(time.Now()))

	allowed, _, err := gate.Allowed(context.Background(), "https://example.com/careers/secret")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRobotsGate_UnreachableDegradesToAllowed(t *testing.T) {
	gate := newRobotsGate(true, time.Hour, "careercrawl/1.0", http.DefaultClient, clock.NewFake(time.Now()))

	allowed, _, err := gate.Allowed(context.Background(), "http://127.0.0.1:1/careers")
	require.NoError(t, err)
	assert.True(t, allowed)
}
