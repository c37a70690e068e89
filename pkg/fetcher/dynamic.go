package fetcher

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/campuscrawl/internal/logger"
)

// Chrome/Chromium binary names tried on PATH when no path is configured.
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
}

// FindChromePath returns the first Chrome/Chromium binary found on PATH, or
// "" when there is none.
func FindChromePath() string {
	for _, name := range chromeBinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// DynamicFetcher renders pages in headless Chrome. One browser process is
// shared; every Fetch gets its own tab.
type DynamicFetcher struct {
	config    Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewDynamic creates a dynamic fetcher. The browser is started lazily on the
// first Fetch.
func NewDynamic(cfg Config) (*DynamicFetcher, error) {
	cfg = cfg.withDefaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	chromePath := cfg.ChromePath
	if chromePath == "" {
		chromePath = FindChromePath()
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	} else {
		logger.Warn("no Chrome binary found, dynamic fetch mode may not work")
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("dynamic fetcher configured",
		"chrome", chromePath,
		"user_agent", cfg.UserAgent,
		"timeout", cfg.Timeout)

	return &DynamicFetcher{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancelAlloc,
	}, nil
}

// Fetch navigates a new tab to targetURL and returns the rendered document.
// The status code and content type come from the first document response
// the browser receives.
func (f *DynamicFetcher) Fetch(ctx context.Context, targetURL string) (Content, error) {
	start := time.Now()
	result := Content{
		RequestURL: targetURL,
		URL:        targetURL,
		FetchedAt:  start,
	}

	tabCtx, cancelTab := chromedp.NewContext(f.allocCtx)
	defer cancelTab()

	// Tie the tab to the caller's context as well as the timeout.
	timeoutCtx, cancelTimeout := context.WithTimeout(tabCtx, f.config.Timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var (
		mu          sync.Mutex
		status      int64
		contentType string
	)
	chromedp.ListenTarget(timeoutCtx, func(ev any) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if status == 0 {
			status = resp.Response.Status
			contentType = resp.Response.MimeType
		}
	})

	var html, location string
	actions := []chromedp.Action{
		network.Enable(),
	}
	if len(f.config.Headers) > 0 {
		headers := make(network.Headers, len(f.config.Headers))
		for k, v := range f.config.Headers {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	actions = append(actions,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady(f.config.WaitSelector),
	)
	if f.config.WaitDuration > 0 {
		actions = append(actions, chromedp.Sleep(f.config.WaitDuration))
	}
	actions = append(actions,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html),
	)

	err := chromedp.Run(timeoutCtx, actions...)
	result.Duration = time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		logger.Debug("dynamic fetch failed", "url", targetURL, "error", err)
		return result, fmt.Errorf("fetch %s: %w", targetURL, err)
	}

	mu.Lock()
	result.StatusCode = int(status)
	result.ContentType = contentType
	mu.Unlock()
	if result.StatusCode == 0 {
		// No document response observed (served from cache or a data: URL).
		result.StatusCode = 200
	}
	if location != "" {
		result.URL = location
	}
	result.HTML = html

	logger.Debug("dynamic fetch complete",
		"url", targetURL,
		"final_url", result.URL,
		"status", result.StatusCode,
		"html_size", len(html),
		"duration", result.Duration)
	return result, nil
}

// Close releases browser resources.
func (f *DynamicFetcher) Close() error {
	if f.cancelCtx != nil {
		f.cancelCtx()
	}
	return nil
}

// Type returns the fetcher type.
func (f *DynamicFetcher) Type() string {
	return "dynamic"
}
