// Package fetcher retrieves pages for the crawler.
//
// StaticFetcher issues plain HTTP requests through colly; DynamicFetcher
// renders the page in headless Chrome through chromedp for sites that build
// their navigation with JavaScript; AutoFetcher uses the browser only for
// pages that need it. All of them report the HTTP status in Content
// instead of failing on non-2xx responses, so the caller decides what a 404
// means.
package fetcher

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves the page at url. Network failures are errors; HTTP
	// error statuses are not.
	Fetch(ctx context.Context, url string) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type ("static", "dynamic", "auto").
	Type() string
}

// Content represents a fetched page.
type Content struct {
	RequestURL  string // URL that was asked for
	URL         string // final URL after redirects
	HTML        string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
	Duration    time.Duration
}

// OK reports whether the response status is 200.
func (c Content) OK() bool {
	return c.StatusCode == 200
}

// IsHTML reports whether the response declared an HTML media type. A missing
// Content-Type is treated as HTML.
func (c Content) IsHTML() bool {
	if c.ContentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(c.ContentType)
	if err != nil {
		return strings.Contains(strings.ToLower(c.ContentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// Config holds configuration shared by the fetchers.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int               // bytes, 0 = unlimited
	Headers     map[string]string // extra request headers

	// Dynamic fetcher only.
	WaitSelector string        // CSS selector to wait for, default "body"
	WaitDuration time.Duration // extra wait after the selector is visible
	ChromePath   string        // browser binary, found on PATH when empty
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:    "campuscrawl/dev (+https://github.com/jmylchreest/campuscrawl)",
		Timeout:      30 * time.Second,
		MaxBodySize:  10 * 1024 * 1024,
		WaitSelector: "body",
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.WaitSelector == "" {
		c.WaitSelector = def.WaitSelector
	}
	return c
}

// New creates a fetcher by mode name.
func New(mode string, cfg Config) (Fetcher, error) {
	switch mode {
	case "", "static":
		return NewStatic(cfg), nil
	case "dynamic":
		return NewDynamic(cfg)
	case "auto":
		return NewAuto(cfg), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s", mode)
	}
}
