package fetcher

import (
	"bufio"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/careercrawl/orchestrator/internal/clock"
)

// robotsRules is the parsed outcome for one host: disallow/allow path
// prefixes for the "*" and our own user-agent groups, plus an optional
// crawl-delay.
type robotsRules struct {
	disallow   []string
	allow      []string
	crawlDelay time.Duration
	fetchedAt  time.Time
}

// robotsGate caches per-host robots.txt decisions with a TTL. No
// robots.txt parser appears anywhere in the retrieved corpus, so this is
// hand-rolled against the standard library only; see DESIGN.md for the
// stdlib-justification entry (supports only the User-agent/Disallow/
// Allow/Crawl-delay directives the spec requires, not the full RFC draft).
type robotsGate struct {
	mu         sync.Mutex
	rules      map[string]*robotsRules
	ttl        time.Duration
	userAgent  string
	httpClient *http.Client
	clk        clock.Clock
	respect    bool
}

func newRobotsGate(respect bool, ttl time.Duration, userAgent string, httpClient *http.Client, clk clock.Clock) *robotsGate {
	return &robotsGate{
		rules:      make(map[string]*robotsRules),
		ttl:        ttl,
		userAgent:  userAgent,
		httpClient: httpClient,
		clk:        clk,
		respect:    respect,
	}
}

// Allowed reports whether rawURL may be fetched under the cached
// robots.txt for its host, refreshing the cache when stale or absent.
func (g *robotsGate) Allowed(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	if !g.respect {
		return true, 0, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return true, 0, nil
	}

	rules, err := g.rulesFor(ctx, u)
	if err != nil {
		// Fetch failures degrade to "allowed" - an unreachable robots.txt
		// must not block an otherwise-healthy crawl.
		return true, 0, nil
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	return matchRules(rules, path), rules.crawlDelay, nil
}

func (g *robotsGate) rulesFor(ctx context.Context, u *url.URL) (*robotsRules, error) {
	host := u.Host

	g.mu.Lock()
	cached, ok := g.rules[host]
	g.mu.Unlock()

	if ok && g.clk.Now().Sub(cached.fetchedAt) < g.ttl {
		return cached, nil
	}

	rules, err := g.fetch(ctx, u)
	if err != nil {
		if ok {
			return cached, nil
		}
		return nil, err
	}

	g.mu.Lock()
	g.rules[host] = rules
	g.mu.Unlock()

	return rules, nil
}

func (g *robotsGate) fetch(ctx context.Context, u *url.URL) (*robotsRules, error) {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return &robotsRules{fetchedAt: g.clk.Now()}, nil
	}
	defer resp.Body.Close()

	rules := &robotsRules{fetchedAt: g.clk.Now()}
	if resp.StatusCode != http.StatusOK {
		return rules, nil
	}

	parseRobots(resp.Body, g.userAgent, rules)
	return rules, nil
}

// parseRobots implements a minimal subset of the robots.txt grammar:
// group matching by User-agent (case-insensitive, "*" as fallback),
// Disallow/Allow path-prefix rules, and a Crawl-delay directive.
func parseRobots(body interface {
	Read(p []byte) (n int, err error)
}, userAgent string, out *robotsRules) {
	scanner := bufio.NewScanner(body)

	inOurGroup := false
	inStarGroup := false
	sawAnyAgent := false

	var starDisallow, starAllow []string
	var usDisallow, usAllow []string
	var starDelay, usDelay time.Duration

	ua := strings.ToLower(userAgent)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		directive := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch directive {
		case "user-agent":
			agent := strings.ToLower(value)
			if sawAnyAgent && !inOurGroup && !inStarGroup {
				// New group after an unmatched one; nothing to flush.
			}
			if agent == "*" {
				inStarGroup = true
				inOurGroup = false
			} else if strings.Contains(ua, agent) || strings.Contains(agent, ua) {
				inOurGroup = true
				inStarGroup = false
			} else {
				inOurGroup = false
				inStarGroup = false
			}
			sawAnyAgent = true
		case "disallow":
			if value == "" {
				continue
			}
			if inOurGroup {
				usDisallow = append(usDisallow, value)
			} else if inStarGroup {
				starDisallow = append(starDisallow, value)
			}
		case "allow":
			if value == "" {
				continue
			}
			if inOurGroup {
				usAllow = append(usAllow, value)
			} else if inStarGroup {
				starAllow = append(starAllow, value)
			}
		case "crawl-delay":
			secs, err := strconv.ParseFloat(value, 64)
			if err != nil {
				continue
			}
			d := time.Duration(secs * float64(time.Second))
			if inOurGroup {
				usDelay = d
			} else if inStarGroup {
				starDelay = d
			}
		}
	}

	if len(usDisallow) > 0 || len(usAllow) > 0 {
		out.disallow = usDisallow
		out.allow = usAllow
		out.crawlDelay = usDelay
	} else {
		out.disallow = starDisallow
		out.allow = starAllow
		out.crawlDelay = starDelay
	}
}

// matchRules applies the longest-match-wins rule: the most specific
// (longest) matching Allow/Disallow prefix governs; ties favour Allow.
func matchRules(rules *robotsRules, path string) bool {
	longestDisallow, longestAllow := -1, -1

	for _, prefix := range rules.disallow {
		if strings.HasPrefix(path, prefix) && len(prefix) > longestDisallow {
			longestDisallow = len(prefix)
		}
	}
	for _, prefix := range rules.allow {
		if strings.HasPrefix(path, prefix) && len(prefix) > longestAllow {
			longestAllow = len(prefix)
		}
	}

	if longestDisallow == -1 {
		return true
	}
	return longestAllow >= longestDisallow
}
