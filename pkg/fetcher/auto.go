package fetcher

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/campuscrawl/internal/logger"
)

// AutoFetcher fetches statically and re-fetches in a browser only the pages
// that look like they are rendered by JavaScript. The browser is started on
// first need.
type AutoFetcher struct {
	static *StaticFetcher
	config Config

	newDynamic func(Config) (Fetcher, error)

	// mu guards browser startup and shutdown.
	mu      sync.Mutex
	started bool
	closed  bool
	dynamic Fetcher
	dynErr  error
}

var errAutoClosed = errors.New("fetcher closed")

// NewAuto creates an AutoFetcher.
func NewAuto(cfg Config) *AutoFetcher {
	return &AutoFetcher{
		static: NewStatic(cfg),
		config: cfg,
		newDynamic: func(c Config) (Fetcher, error) {
			return NewDynamic(c)
		},
	}
}

// Fetch tries a static request first and falls back to the browser when the
// response is an HTML shell of a client-side app.
func (f *AutoFetcher) Fetch(ctx context.Context, targetURL string) (Content, error) {
	content, err := f.static.Fetch(ctx, targetURL)
	if err != nil || !content.OK() || !content.IsHTML() || !NeedsJavaScript(content.HTML) {
		return content, err
	}

	dyn, derr := f.browser()
	if derr != nil {
		logger.Warn("browser unavailable, keeping static content", "url", targetURL, "error", derr)
		return content, nil
	}

	logger.Debug("page needs javascript, rendering", "url", targetURL)
	return dyn.Fetch(ctx, targetURL)
}

func (f *AutoFetcher) browser() (Fetcher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, errAutoClosed
	}
	if !f.started {
		f.started = true
		f.dynamic, f.dynErr = f.newDynamic(f.config)
	}
	return f.dynamic, f.dynErr
}

// Close releases the browser if one was started. A browser still starting
// is waited for and then closed; none is started afterwards.
func (f *AutoFetcher) Close() error {
	f.mu.Lock()
	f.closed = true
	dyn := f.dynamic
	f.dynamic = nil
	f.mu.Unlock()

	err := f.static.Close()
	if dyn != nil {
		if derr := dyn.Close(); derr != nil {
			return derr
		}
	}
	return err
}

// Type returns "auto".
func (f *AutoFetcher) Type() string {
	return "auto"
}

// mountSelectors match the empty root elements client-side frameworks
// render into.
var mountSelectors = []string{
	"div#root:empty",
	"div#app:empty",
	"div#__next:empty",
	"div#__nuxt:empty",
	"app-root:empty",
	"[ng-app]",
	"[v-cloak]",
	"[data-reactroot]:empty",
}

var loadingHints = []string{
	"loading",
	"please wait",
	"javascript required",
	"enable javascript",
}

// NeedsJavaScript reports whether html looks like the shell of a page that
// is only usable after scripts run.
func NeedsJavaScript(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	for _, sel := range mountSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}

	noscript := strings.ToLower(doc.Find("noscript").Text())
	if strings.Contains(noscript, "javascript") {
		return true
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := strings.ToLower(strings.TrimSpace(body.Text()))
	if len(text) < 100 {
		for _, hint := range loadingHints {
			if strings.Contains(text, hint) {
				return true
			}
		}
	}
	return false
}
