package crawler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	"github.com/jmylchreest/campuscrawl/internal/logger"
)

// RobotsGate answers robots.txt questions for the crawler. Each origin's
// robots.txt is fetched once per run; concurrent first requests for the same
// origin share a single fetch. An unreachable robots.txt allows everything.
type RobotsGate struct {
	client    *http.Client
	userAgent string
	agent     string

	mu     sync.RWMutex
	byHost map[string]*robotstxt.RobotsData
	group  singleflight.Group
}

// NewRobotsGate creates a gate. userAgent is sent with robots.txt requests;
// its product token (text before the first "/") is the agent matched against
// User-agent lines.
func NewRobotsGate(client *http.Client, userAgent string) *RobotsGate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	agent, _, _ := strings.Cut(userAgent, "/")
	return &RobotsGate{
		client:    client,
		userAgent: userAgent,
		agent:     strings.TrimSpace(agent),
		byHost:    make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether rawURL may be fetched.
func (r *RobotsGate) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	data := r.robots(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, r.agent)
}

func (r *RobotsGate) robots(ctx context.Context, origin string) *robotstxt.RobotsData {
	r.mu.RLock()
	data, ok := r.byHost[origin]
	r.mu.RUnlock()
	if ok {
		return data
	}

	v, _, _ := r.group.Do(origin, func() (any, error) {
		r.mu.RLock()
		data, ok := r.byHost[origin]
		r.mu.RUnlock()
		if ok {
			return data, nil
		}

		data = r.load(ctx, origin)
		r.mu.Lock()
		r.byHost[origin] = data
		r.mu.Unlock()
		return data, nil
	})
	return v.(*robotstxt.RobotsData)
}

func (r *RobotsGate) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	robotsURL := origin + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		logger.Component("robots").Debug("robots.txt unavailable", "url", robotsURL, "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		logger.Component("robots").Debug("robots.txt unparsable", "url", robotsURL, "error", err)
		return nil
	}

	logger.Component("robots").Debug("robots.txt loaded", "url", robotsURL, "status", resp.StatusCode)
	return data
}
