package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/campuscrawl/internal/logger"
)

// StaticFetcher uses Colly for static HTML fetching.
// It implements the Fetcher interface.
type StaticFetcher struct {
	config Config
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg Config) *StaticFetcher {
	return &StaticFetcher{config: cfg.withDefaults()}
}

// Fetch retrieves a page using a fresh Colly collector. Error statuses are
// parsed like any other response and reported in StatusCode.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string) (Content, error) {
	start := time.Now()
	result := Content{
		RequestURL: targetURL,
		URL:        targetURL,
		FetchedAt:  start,
	}

	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.StdlibContext(ctx),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(f.config.MaxBodySize),
	)
	c.SetRequestTimeout(f.config.Timeout)

	if len(f.config.Headers) > 0 {
		c.OnRequest(func(r *colly.Request) {
			for k, v := range f.config.Headers {
				r.Headers.Set(k, v)
			}
		})
	}

	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.HTML = string(r.Body)
		if r.Request != nil && r.Request.URL != nil {
			result.URL = r.Request.URL.String()
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	result.Duration = time.Since(start)

	if fetchErr != nil {
		logger.Debug("static fetch failed", "url", targetURL, "error", fetchErr)
		return result, fmt.Errorf("fetch %s: %w", targetURL, fetchErr)
	}

	logger.Debug("static fetch complete",
		"url", targetURL,
		"final_url", result.URL,
		"status", result.StatusCode,
		"content_type", result.ContentType,
		"body_size", len(result.HTML),
		"duration", result.Duration)
	return result, nil
}

// Close releases resources.
func (f *StaticFetcher) Close() error {
	return nil
}

// Type returns the fetcher type.
func (f *StaticFetcher) Type() string {
	return "static"
}
