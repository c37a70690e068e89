package commands

import (
	"github.com/spf13/pflag"

	"github.com/jmylchreest/campuscrawl/internal/config"
	"github.com/jmylchreest/campuscrawl/internal/crawler"
	"github.com/jmylchreest/campuscrawl/pkg/fetcher"
)

// addTraversalFlags registers the link-following, politeness and fetch
// flags shared by crawl and discover, and returns their config bindings.
func addTraversalFlags(flags *pflag.FlagSet, maxDepth int) map[string]string {
	crawlDef := crawler.DefaultConfig()
	fetchDef := fetcher.DefaultConfig()

	// Seeds
	flags.StringSliceP("url", "u", nil, "seed URL (can be repeated)")
	flags.StringP("seeds", "s", "", "seed file: CSV with a url column, or one URL per line")

	// Link following
	flags.Int("max-depth", maxDepth, "max link depth (0=seeds only, -1=unlimited)")
	flags.String("scope", crawlDef.Scope, "links to follow: host, site (same registrable domain) or any")
	flags.String("follow-pattern", "", "regex a link must match to be followed")
	flags.StringSlice("exclude", nil, "skip URLs containing this substring (can be repeated)")
	flags.Int("max-urls", 0, "max URLs to fetch (0=unlimited)")

	// Politeness
	flags.Duration("delay", crawlDef.Delay, "minimum delay between requests")
	flags.IntP("concurrency", "c", crawlDef.Concurrency, "concurrent requests")
	flags.Bool("respect-robots", true, "honor robots.txt")
	flags.String("user-agent", "", "User-Agent header (default campuscrawl/<version>)")

	// Fetching
	flags.String("fetch-mode", "static", "fetch mode: static, dynamic (headless Chrome) or auto (browser only for JavaScript-rendered pages)")
	flags.Duration("timeout", fetchDef.Timeout, "request timeout")
	flags.String("max-body-size", "10MiB", "max response size (e.g. 512KB, 10MiB, 0=unlimited)")
	flags.String("wait-selector", fetchDef.WaitSelector, "dynamic mode: CSS selector to wait for")
	flags.Duration("wait-duration", 0, "dynamic mode: extra wait after the page is ready")
	flags.String("chrome-path", "", "dynamic mode: browser binary (default: found on PATH)")

	return map[string]string{
		config.KeySeeds:         "url",
		config.KeySeedsFile:     "seeds",
		config.KeyMaxDepth:      "max-depth",
		config.KeyScope:         "scope",
		config.KeyFollowPattern: "follow-pattern",
		config.KeyExclude:       "exclude",
		config.KeyMaxURLs:       "max-urls",
		config.KeyDelay:         "delay",
		config.KeyConcurrency:   "concurrency",
		config.KeyRespectRobots: "respect-robots",
		config.KeyUserAgent:     "user-agent",
		config.KeyFetchMode:     "fetch-mode",
		config.KeyTimeout:       "timeout",
		config.KeyMaxBodySize:   "max-body-size",
		config.KeyWaitSelector:  "wait-selector",
		config.KeyWaitDuration:  "wait-duration",
		config.KeyChromePath:    "chrome-path",
	}
}
