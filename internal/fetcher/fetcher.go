// Package fetcher implements the HTTP Fetcher (C1): per-host rate
// limiting, retry with backoff, a per-host circuit breaker, robots.txt
// gating, and user-agent/proxy rotation, grounded on the teacher's
// internal/services/crawler package and internal/common/httpclient.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/careercrawl/orchestrator/internal/clock"
	"github.com/careercrawl/orchestrator/internal/config"
	"github.com/careercrawl/orchestrator/internal/errs"
)

// Result is a single successful fetch outcome.
type Result struct {
	Body       []byte
	StatusCode int
	FinalURL   string
}

// Fetcher is the C1 entry point: Fetch(ctx, url) wires rate limiting,
// robots gating, circuit breaking, retry-with-backoff and UA/proxy
// rotation into one call, mirroring the shape of the teacher's
// crawler.Crawler.FetchURL orchestration.
type Fetcher struct {
	httpClient *http.Client
	limiter    *hostRateLimiter
	breaker    *circuitBreaker
	robots     *robotsGate
	retry      *retryPolicy
	logger     arbor.ILogger

	userAgents []string
	proxies    []string
	uaIndex    uint64
}

// New builds a Fetcher from resolved FetcherConfig.
func New(cfg config.FetcherConfig, clk clock.Clock, logger arbor.ILogger) *Fetcher {
	timeout := config.ParseDuration(cfg.RequestTimeout, 20*time.Second)
	robotsTTL := config.ParseDuration(cfg.RobotsTTL, time.Hour)
	circuitWindow := config.ParseDuration(cfg.CircuitWindow, time.Minute)
	circuitCoolOff := config.ParseDuration(cfg.CircuitCoolOff, 30*time.Second)
	rateLimitWait := config.ParseDuration(cfg.RateLimitWait, 2*time.Second)
	initialBackoff := time.Duration(cfg.InitialBackoffMs) * time.Millisecond
	maxBackoff := time.Duration(cfg.MaxBackoffMs) * time.Millisecond

	httpClient := newHTTPClient(timeout)

	userAgents := cfg.UserAgents
	if len(userAgents) == 0 {
		userAgents = []string{"careercrawl/1.0 (+https://careercrawl.example/bot)"}
	}

	return &Fetcher{
		httpClient: httpClient,
		limiter:    newHostRateLimiter(cfg.RatePerHost, cfg.BurstPerHost, rateLimitWait),
		breaker:    newCircuitBreaker(cfg.CircuitFailThreshold, circuitWindow, circuitCoolOff, clk),
		robots:     newRobotsGate(cfg.RobotsRespect, robotsTTL, userAgents[0], httpClient, clk),
		retry:      newRetryPolicy(cfg.MaxRetries+1, initialBackoff, maxBackoff),
		logger:     logger,
		userAgents: userAgents,
		proxies:    cfg.Proxies,
	}
}

// Fetch retrieves rawURL, honouring the local rate limit, the host's
// circuit breaker and robots.txt, retrying transient failures per the
// retry policy, and rotating user-agent across attempts.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.ErrInvalid
	}
	host := u.Host

	if err := f.breaker.Admit(host); err != nil {
		return nil, err
	}

	allowed, crawlDelay, err := f.robots.Allowed(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errs.ErrRobotsDisallow
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}
	if crawlDelay > 0 {
		timer := time.NewTimer(crawlDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	res := f.retry.executeWithRetry(ctx, f.logger, func(ctx context.Context) attemptResult {
		return f.attempt(ctx, rawURL, headers)
	})

	if res.err != nil {
		f.breaker.RecordFailure(host)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.Is(res.err, context.DeadlineExceeded) || (errors.As(res.err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %v", errs.ErrTimeout, res.err)
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrTransport, res.err)
	}
	if statusErr := classifyStatus(res.statusCode); statusErr != nil {
		f.breaker.RecordFailure(host)
		return nil, statusErr
	}

	f.breaker.RecordSuccess(host)
	return &Result{Body: res.body, StatusCode: res.statusCode, FinalURL: rawURL}, nil
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string, headers map[string]string) attemptResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return attemptResult{err: err}
	}

	req.Header.Set("User-Agent", f.nextUserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := f.httpClient
	if proxyURL := f.nextProxy(); proxyURL != nil {
		transport := &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		client = &http.Client{Timeout: f.httpClient.Timeout, Transport: transport}
	}

	resp, err := client.Do(req)
	if err != nil {
		return attemptResult{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptResult{err: err, statusCode: resp.StatusCode}
	}

	result := attemptResult{body: body, statusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if d, ok := parseRetryAfter(ra); ok {
				result.retryAfter = d
				result.hasRetryAfter = true
			}
		}
	}
	return result
}

func (f *Fetcher) nextUserAgent() string {
	if len(f.userAgents) == 0 {
		return "careercrawl/1.0"
	}
	i := atomic.AddUint64(&f.uaIndex, 1) - 1
	return f.userAgents[int(i)%len(f.userAgents)]
}

func (f *Fetcher) nextProxy() *url.URL {
	if len(f.proxies) == 0 {
		return nil
	}
	i := atomic.AddUint64(&f.uaIndex, 0)
	raw := f.proxies[int(i)%len(f.proxies)]
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}

func parseRetryAfter(value string) (time.Duration, bool) {
	if secs, err := time.ParseDuration(value + "s"); err == nil {
		return secs, true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
