package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/campuscrawl/internal/config"
	"github.com/jmylchreest/campuscrawl/internal/crawler"
	"github.com/jmylchreest/campuscrawl/internal/logger"
	"github.com/jmylchreest/campuscrawl/internal/output"
	"github.com/jmylchreest/campuscrawl/internal/record"
	"github.com/jmylchreest/campuscrawl/internal/report"
	"github.com/jmylchreest/campuscrawl/internal/sitegraph"
	"github.com/jmylchreest/campuscrawl/internal/store"
	"github.com/jmylchreest/campuscrawl/pkg/extract"
	"github.com/jmylchreest/campuscrawl/pkg/fetcher"
)

func newCrawlCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl pages and append one JSON record per page",
		Long: `Crawl fetches every seed URL, and the links it finds up to --max-depth,
and appends one record per page to a JSONL file:

  {"main_url": "...", "title": "...", "paths_urls": ["base -> url", ...], "text": "..."}

paths_urls lists the edges of the shared page graph: each link of a page is
attached to its parent path. By default every record carries the whole graph
as it stood when the page was processed; --edge-mode delta records only the
edges the page added.

Pages without a main content region (--main-selector), non-HTML responses
and failed fetches are logged and skipped. A failure to write the output
stops the crawl.

Examples:
  # Crawl seeds from the url column of a CSV file
  campuscrawl crawl -s urls_main_domain.csv -o output.jsonl

  # Follow staff pages from a faculty listing
  campuscrawl crawl -u "https://www.example.ac.uk/about/faculties" \
      --max-depth 1 --follow-pattern "/about/employee/" --exclude "?tab="

  # Render pages in headless Chrome and export the graph
  campuscrawl crawl -u "https://www.example.ac.uk/" --fetch-mode dynamic \
      --graph-output graph.yaml`,
	}

	flags := cmd.Flags()
	bindings := addTraversalFlags(flags, 0)

	// Output
	flags.StringP("output", "o", "output.jsonl", "JSONL output file (appended)")
	flags.Bool("sync", false, "fsync the output file after every record")
	flags.String("graph-output", "", "write the final page graph to this file (.json or .yaml)")
	flags.String("report", "", "write a Markdown crawl report to this file")
	flags.String("database", "", "also store records in this SQLite database")

	// Extraction
	flags.String("main-selector", extract.DefaultMainSelector, "CSS selector of the main content region")
	flags.String("edge-mode", crawler.EdgeModeCumulative, "paths_urls per record: cumulative or delta")

	bindings[config.KeyOutput] = "output"
	bindings[config.KeySync] = "sync"
	bindings[config.KeyGraphOutput] = "graph-output"
	bindings[config.KeyReport] = "report"
	bindings[config.KeyDatabase] = "database"
	bindings[config.KeyMainSelector] = "main-selector"
	bindings[config.KeyEdgeMode] = "edge-mode"

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := a.load(cmd, bindings, nil)
		if err != nil {
			return err
		}
		return runCrawl(cmd, cfg, args)
	}
	return cmd
}

func runCrawl(cmd *cobra.Command, cfg *config.Config, args []string) (err error) {
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

	em, err := openEmitter(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := em.Close(); cerr != nil {
			logger.Error("failed to close output", "error", cerr)
			err = errors.Join(err, cerr)
		}
	}()

	state := sitegraph.NewState()
	c := crawler.New(f, extract.NewHTMLExtractor(cfg.MainSelector), state, em, cfg.Crawler())

	logger.Info("starting crawl",
		"seeds", len(seedURLs),
		"output", cfg.Output,
		"fetcher", f.Type(),
		"max_depth", cfg.MaxDepth,
		"concurrency", cfg.Concurrency)

	started := time.Now()
	stats, runErr := c.Run(ctx, seedURLs)
	if runErr != nil {
		logger.ErrorContext(ctx, "crawl stopped", "error", runErr)
	}

	if cfg.GraphOutput != "" {
		if gerr := writeGraph(cfg.GraphOutput, state); gerr != nil {
			logger.Error("failed to write graph", "path", cfg.GraphOutput, "error", gerr)
			runErr = errors.Join(runErr, gerr)
		} else {
			logger.Info("graph written", "path", cfg.GraphOutput, "edges", state.Graph.Len())
		}
	}

	if cfg.Report != "" {
		rep := &report.Report{
			Seeds:     seedURLs,
			StartedAt: started,
			Stats:     stats,
			Visited:   state.Visited.Sorted(),
			Graph:     state.Export(),
			Output:    cfg.Output,
			Err:       runErr,
			Canceled:  ctx.Err() != nil,
		}
		if rerr := report.Save(cfg.Report, rep); rerr != nil {
			logger.Error("failed to write report", "path", cfg.Report, "error", rerr)
			runErr = errors.Join(runErr, rerr)
		} else {
			logger.Info("report written", "path", cfg.Report)
		}
	}

	return runErr
}

// openEmitter opens the JSONL stream and, when configured, the SQLite store.
func openEmitter(cfg *config.Config) (*record.Emitter, error) {
	out, err := output.Create(cfg.Output, output.FormatJSONL, output.WithSync(cfg.Sync))
	if err != nil {
		return nil, err
	}
	sinks := []record.Sink{record.StreamSink{W: out}}

	if cfg.Database != "" {
		st, err := store.Open(cfg.Database, store.DefaultOptions())
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("open database: %w", err)
		}
		sinks = append(sinks, st)
	}
	return record.NewEmitter(sinks...), nil
}

// writeGraph exports the page graph in the format implied by path.
func writeGraph(path string, state *sitegraph.State) error {
	w, err := output.Create(path, output.FormatFromPath(path))
	if err != nil {
		return err
	}
	if err := w.Write(state.Export()); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
