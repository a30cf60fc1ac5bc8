package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// DefaultRobotsTTL is how long fetched robots.txt rules stay cached.
const DefaultRobotsTTL = 30 * time.Minute

// RobotsGate evaluates robots.txt rules with a per-host cache.
//
// The gate fails open: a missing, unreachable or unparsable robots.txt allows
// everything.
type RobotsGate struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration

	mu    sync.RWMutex
	cache map[string]robotsEntry
}

type robotsEntry struct {
	fetched time.Time
	rules   *robotstxt.RobotsData
}

// NewRobotsGate creates a gate that fetches robots.txt with client.
// A non-positive ttl selects DefaultRobotsTTL.
func NewRobotsGate(client *http.Client, userAgent string, ttl time.Duration) *RobotsGate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if ttl <= 0 {
		ttl = DefaultRobotsTTL
	}
	return &RobotsGate{
		client:    client,
		userAgent: userAgent,
		ttl:       ttl,
		cache:     make(map[string]robotsEntry),
	}
}

// Allowed reports whether target may be fetched.
func (g *RobotsGate) Allowed(ctx context.Context, target *url.URL) bool {
	if target == nil || !target.IsAbs() {
		return false
	}

	rules, err := g.rules(ctx, target)
	if err != nil {
		return true
	}

	group := rules.FindGroup(g.userAgent)
	if group == nil {
		return true
	}
	return group.Test(target.Path)
}

func (g *RobotsGate) rules(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	host := strings.ToLower(target.Host)

	g.mu.RLock()
	entry, ok := g.cache[host]
	g.mu.RUnlock()
	if ok && time.Since(entry.fetched) < g.ttl {
		return entry.rules, nil
	}

	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	// FromResponse maps 4xx to allow-all and 5xx to disallow-all; a server
	// error should not block the crawl, so 5xx is treated as unreachable.
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	g.mu.Lock()
	g.cache[host] = robotsEntry{fetched: time.Now(), rules: data}
	g.mu.Unlock()

	return data, nil
}
