package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/campuscrawl/internal/logger"
	"github.com/jmylchreest/campuscrawl/internal/record"
	"github.com/jmylchreest/campuscrawl/internal/sitegraph"
	"github.com/jmylchreest/campuscrawl/pkg/extract"
	"github.com/jmylchreest/campuscrawl/pkg/fetcher"
)

// ErrFetchFailed marks a page that could not be retrieved: a network error
// or a status other than 200. The page is skipped and stays visited.
var ErrFetchFailed = errors.New("fetch failed")

// Edge modes.
const (
	EdgeModeCumulative = "cumulative" // every record carries the whole graph
	EdgeModeDelta      = "delta"      // every record carries only its new edges
)

// Config holds crawler configuration.
type Config struct {
	// Link following
	MaxDepth      int      // 0 = seeds only, <0 = unlimited
	Scope         string   // host, site or any
	FollowPattern string   // regex a discovered link must match to be followed
	Exclude       []string // substrings that exclude a URL everywhere

	// Limits
	MaxURLs int // max URLs dispatched, 0 = unlimited

	// Rate limiting
	Delay       time.Duration // minimum spacing between fetches
	Concurrency int           // max concurrent fetches

	// Politeness
	RespectRobots bool
	UserAgent     string // sent with robots.txt requests

	EdgeMode string
}

// DefaultConfig returns sensible crawler defaults.
func DefaultConfig() Config {
	return Config{
		MaxDepth:    0,
		Scope:       ScopeHost,
		MaxURLs:     0,
		Delay:       200 * time.Millisecond,
		Concurrency: 3,
		EdgeMode:    EdgeModeCumulative,
	}
}

// Emitter receives finished page records.
type Emitter interface {
	Emit(rec record.PageRecord) error
}

// Stats summarizes a run.
type Stats struct {
	Scheduled int64 // URLs admitted to the queue
	Fetched   int64 // responses received
	Emitted   int64 // records written
	Failed    int64 // network errors and non-200 responses
	Skipped   int64 // robots, non-HTML, duplicate redirects, missing content region
	Bytes     int64 // HTML bytes received
	Duration  time.Duration
}

type counters struct {
	scheduled, fetched, emitted, failed, skipped, bytes atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Scheduled: c.scheduled.Load(),
		Fetched:   c.fetched.Load(),
		Emitted:   c.emitted.Load(),
		Failed:    c.failed.Load(),
		Skipped:   c.skipped.Load(),
		Bytes:     c.bytes.Load(),
	}
}

// Crawler fetches pages and feeds them through extraction, the site graph
// and the emitter. A nil emitter runs in discovery mode: pages are fetched,
// links followed and the graph built, but no records are written.
type Crawler struct {
	fetcher   fetcher.Fetcher
	extractor extract.ContentExtractor
	state     *sitegraph.State
	emitter   Emitter
	config    Config
	robots    *RobotsGate
	stats     counters

	// emitMu makes graph update and record emission one step, so records
	// leave in the same order as their snapshots were taken.
	emitMu sync.Mutex
}

// New creates a new Crawler.
func New(f fetcher.Fetcher, ext extract.ContentExtractor, state *sitegraph.State, em Emitter, cfg Config) *Crawler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.EdgeMode == "" {
		cfg.EdgeMode = EdgeModeCumulative
	}

	c := &Crawler{
		fetcher:   f,
		extractor: ext,
		state:     state,
		emitter:   em,
		config:    cfg,
	}
	if cfg.RespectRobots {
		c.robots = NewRobotsGate(nil, cfg.UserAgent)
	}
	return c
}

// Stats returns the counters so far.
func (c *Crawler) Stats() Stats {
	return c.stats.snapshot()
}

// Run crawls from seeds until the queue drains, a limit is hit, ctx is
// canceled or a record cannot be written. Only the last is returned as an
// error (wrapping record.ErrOutputWrite); per-page failures are counted and
// logged.
//
// Cancellation stops new fetches. A page whose fetch already completed is
// still parsed, added to the graph and emitted.
func (c *Crawler) Run(ctx context.Context, seeds []string) (Stats, error) {
	start := time.Now()

	scope, err := NewScope(c.config.Scope, seeds, c.config.FollowPattern, c.config.Exclude)
	if err != nil {
		return Stats{}, err
	}

	logger.Debug("crawler starting",
		"seeds", len(seeds),
		"fetcher", c.fetcher.Type(),
		"max_depth", c.config.MaxDepth,
		"max_urls", c.config.MaxURLs,
		"concurrency", c.config.Concurrency,
		"delay", c.config.Delay,
		"scope", scope.Mode,
		"edge_mode", c.config.EdgeMode)

	queue := NewURLQueue(c.state.Visited)
	for _, seed := range seeds {
		if !scope.AllowsSeed(seed) {
			logger.Debug("seed excluded", "url", seed)
			continue
		}
		if queue.Add(seed, 0) {
			c.stats.scheduled.Add(1)
		}
	}

	limit := rate.Inf
	if c.config.Delay > 0 {
		limit = rate.Every(c.config.Delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Concurrency)

	// inflight lets the dispatch loop wait for running pages that may still
	// add links once the queue runs dry.
	var inflight sync.WaitGroup
	dispatched := 0

	for {
		if gctx.Err() != nil {
			break
		}
		if c.config.MaxURLs > 0 && dispatched >= c.config.MaxURLs {
			logger.Debug("crawler reached max URLs limit", "max_urls", c.config.MaxURLs)
			break
		}

		pageURL, depth, ok := queue.Pop()
		if !ok {
			inflight.Wait()
			if queue.Len() == 0 {
				break
			}
			continue
		}

		dispatched++
		inflight.Add(1)
		g.Go(func() error {
			defer inflight.Done()
			return c.process(gctx, limiter, scope, queue, pageURL, depth)
		})
	}

	err = g.Wait()

	stats := c.stats.snapshot()
	stats.Duration = time.Since(start)

	logger.Info("crawl finished",
		"scheduled", stats.Scheduled,
		"fetched", stats.Fetched,
		"emitted", stats.Emitted,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"downloaded", humanize.Bytes(uint64(stats.Bytes)),
		"edges", c.state.Graph.Len(),
		"duration", stats.Duration.Round(time.Millisecond))

	return stats, err
}

// process handles one URL. It returns an error only when the run must stop.
func (c *Crawler) process(
	ctx context.Context,
	limiter *rate.Limiter,
	scope *Scope,
	queue *URLQueue,
	pageURL string,
	depth int,
) error {
	if ctx.Err() != nil {
		return nil
	}

	if c.robots != nil && !c.robots.Allowed(ctx, pageURL) {
		logger.Info("disallowed by robots.txt", "url", pageURL)
		c.stats.skipped.Add(1)
		return nil
	}

	if err := limiter.Wait(ctx); err != nil {
		return nil
	}

	content, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			logger.DebugContext(ctx, "fetch interrupted", "url", pageURL)
			return nil
		}
		c.stats.failed.Add(1)
		logger.WarnContext(ctx, "page skipped", "url", pageURL, "error", fmt.Errorf("%w: %v", ErrFetchFailed, err))
		return nil
	}

	// From here on the page is processed to completion.
	c.stats.fetched.Add(1)
	c.stats.bytes.Add(int64(len(content.HTML)))

	if !content.OK() {
		c.stats.failed.Add(1)
		logger.Info("page skipped",
			"url", pageURL,
			"status", content.StatusCode,
			"error", ErrFetchFailed)
		return nil
	}
	if !content.IsHTML() {
		c.stats.skipped.Add(1)
		logger.Debug("skipping non-HTML response", "url", pageURL, "content_type", content.ContentType)
		return nil
	}

	finalURL := content.URL
	if finalURL == "" {
		finalURL = pageURL
	}
	if finalURL != pageURL && !c.state.Visited.ShouldVisit(finalURL) {
		c.stats.skipped.Add(1)
		logger.Debug("redirect target already visited", "url", pageURL, "final_url", finalURL)
		return nil
	}

	page, err := c.extractor.Extract(content.HTML, finalURL)
	if err != nil {
		if errors.Is(err, extract.ErrMissingContentRegion) {
			c.stats.skipped.Add(1)
			logger.Warn("page skipped", "url", finalURL, "error", err)
		} else {
			c.stats.failed.Add(1)
			logger.Warn("page could not be parsed", "url", finalURL, "error", err)
		}
		return nil
	}

	links := page.LinkURLs()
	upd, err := c.addAndEmit(finalURL, page, links)
	if err != nil {
		return err
	}

	followed := 0
	if c.config.MaxDepth < 0 || depth < c.config.MaxDepth {
		for _, link := range links {
			if !scope.AllowsLink(link) {
				continue
			}
			if queue.Add(link, depth+1) {
				c.stats.scheduled.Add(1)
				followed++
			}
		}
	}

	logger.InfoContext(ctx, "page processed",
		"url", finalURL,
		"depth", depth,
		"links", len(links),
		"new_edges", len(upd.Added),
		"followed", followed)
	return nil
}

// addAndEmit adds the page to the graph and emits its record while holding
// emitMu.
func (c *Crawler) addAndEmit(pageURL string, page extract.Page, links []string) (sitegraph.Update, error) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	upd := c.state.Graph.AddPage(pageURL, links)
	if c.emitter == nil {
		return upd, nil
	}

	edges := upd.Snapshot
	if c.config.EdgeMode == EdgeModeDelta {
		edges = upd.Added
	}
	if err := c.emitter.Emit(record.Build(pageURL, page, edges)); err != nil {
		return upd, err
	}
	c.stats.emitted.Add(1)
	return upd, nil
}
