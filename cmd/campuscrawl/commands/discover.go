package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/campuscrawl/internal/config"
	"github.com/jmylchreest/campuscrawl/internal/crawler"
	"github.com/jmylchreest/campuscrawl/internal/logger"
	"github.com/jmylchreest/campuscrawl/internal/seeds"
	"github.com/jmylchreest/campuscrawl/internal/sitegraph"
	"github.com/jmylchreest/campuscrawl/pkg/extract"
	"github.com/jmylchreest/campuscrawl/pkg/fetcher"
)

// discoverSelector takes links from the whole page, not just the main
// region, so navigation menus are followed.
const discoverSelector = "body"

func newDiscoverCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover [url...]",
		Short: "List every reachable page of a site as a seed CSV",
		Long: `Discover follows every in-scope link from the seed URLs, without a depth
limit unless --max-depth is given, and writes the sorted list of unique URLs
it found to a CSV file with a single "url" column. No page records are
written. The CSV can be passed to "crawl --seeds".

Examples:
  campuscrawl discover -u "https://www.example.ac.uk/" -o urls.csv
  campuscrawl discover -u "https://www.example.ac.uk/" --scope site --max-urls 5000`,
	}

	flags := cmd.Flags()
	bindings := addTraversalFlags(flags, -1)
	flags.StringP("output", "o", "urls.csv", "CSV file to write")
	bindings[config.KeyOutput] = "output"

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := a.load(cmd, bindings, map[string]any{
			config.KeyMaxDepth: -1,
			config.KeyOutput:   "urls.csv",
		})
		if err != nil {
			return err
		}
		return runDiscover(cmd, cfg, args)
	}
	return cmd
}

func runDiscover(cmd *cobra.Command, cfg *config.Config, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	seedURLs, err := collectSeeds(cfg, args)
	if err != nil {
		return err
	}

	f, err := fetcher.New(cfg.FetchMode, cfg.Fetcher())
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	state := sitegraph.NewState()
	c := crawler.New(f, extract.NewHTMLExtractor(discoverSelector), state, nil, cfg.Crawler())

	logger.Info("starting discovery", "seeds", len(seedURLs), "scope", cfg.Scope)

	if _, err := c.Run(ctx, seedURLs); err != nil {
		return err
	}

	urls := state.Visited.Sorted()
	if err := seeds.SaveCSV(cfg.Output, urls); err != nil {
		return fmt.Errorf("write discovered urls: %w", err)
	}
	logger.Info("discovery finished", "urls", len(urls), "output", cfg.Output)
	return nil
}
