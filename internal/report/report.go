// Package report renders a Markdown summary of a crawl run.
package report

import (
	"cmp"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/jmylchreest/campuscrawl/internal/crawler"
	"github.com/jmylchreest/campuscrawl/internal/sitegraph"
	"github.com/jmylchreest/campuscrawl/internal/version"
)

// DefaultTop is the number of rows in ranked tables.
const DefaultTop = 10

// Report is the input to a report writer.
type Report struct {
	Seeds     []string
	StartedAt time.Time
	Stats     crawler.Stats
	Visited   []string
	Graph     sitegraph.Export
	Output    string
	Err       error
	Canceled  bool
}

// Count is a ranked key.
type Count struct {
	Key   string
	Count int
}

// HostCounts counts visited URLs per host, most visited first.
func (r *Report) HostCounts() []Count {
	counts := make(map[string]int)
	for _, raw := range r.Visited {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		counts[u.Host]++
	}
	return ranked(counts)
}

// TopTargets ranks edge targets by the number of base paths linking to them.
func (r *Report) TopTargets() []Count {
	counts := make(map[string]int)
	for _, e := range r.Graph.Edges {
		counts[e.Target]++
	}
	return ranked(counts)
}

// TopSources ranks base paths by their number of outbound edges.
func (r *Report) TopSources() []Count {
	counts := make(map[string]int)
	for _, e := range r.Graph.Edges {
		counts[e.Source]++
	}
	return ranked(counts)
}

func ranked(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// MarkdownWriter writes reports as Markdown.
type MarkdownWriter struct {
	output io.Writer
	top    int
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to w.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: w, top: DefaultTop}
}

// WithTop sets the number of rows in ranked tables.
func (w *MarkdownWriter) WithTop(n int) *MarkdownWriter {
	if n > 0 {
		w.top = n
	}
	return w
}

// Write renders r.
func (w *MarkdownWriter) Write(r *Report) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, r)
	w.writeCounters(md, r)
	w.writeRanked(md, "Pages per Host", "Host", "Pages", r.HostCounts())
	w.writeRanked(md, "Most Linked Pages", "Page", "Linking paths", r.TopTargets())
	w.writeRanked(md, "Largest Paths", "Base path", "Pages", r.TopSources())
	w.writeFooter(md)

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, r *Report) {
	md.H1("Crawl Report")
	md.PlainText("")

	started := "-"
	if !r.StartedAt.IsZero() {
		started = r.StartedAt.Format("2006-01-02 15:04:05 MST")
	}
	output := r.Output
	if output == "" {
		output = "-"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seeds", strconv.Itoa(len(r.Seeds))},
			{"Started", started},
			{"Duration", r.Stats.Duration.Round(time.Millisecond).String()},
			{"Output", "`" + output + "`"},
			{"Status", status(r)},
		},
	})
	md.PlainText("")
}

func status(r *Report) string {
	switch {
	case r.Err != nil:
		return "Error - " + r.Err.Error()
	case r.Canceled:
		return "Interrupted (partial results)"
	default:
		return "Complete"
	}
}

func (w *MarkdownWriter) writeCounters(md *markdown.Markdown, r *Report) {
	s := r.Stats

	md.H2("Counters")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Scheduled", strconv.FormatInt(s.Scheduled, 10)},
			{"Fetched", strconv.FormatInt(s.Fetched, 10)},
			{"Emitted", strconv.FormatInt(s.Emitted, 10)},
			{"Failed", strconv.FormatInt(s.Failed, 10)},
			{"Skipped", strconv.FormatInt(s.Skipped, 10)},
			{"Downloaded", humanize.Bytes(uint64(max(s.Bytes, 0)))},
			{"Graph edges", strconv.Itoa(len(r.Graph.Edges))},
		},
	})
	md.PlainText("")

	if s.Emitted+s.Failed+s.Skipped > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Page Outcomes"),
			piechart.WithShowData(true),
		)
		for _, part := range []struct {
			label string
			n     int64
		}{
			{"Emitted", s.Emitted},
			{"Failed", s.Failed},
			{"Skipped", s.Skipped},
		} {
			if part.n > 0 {
				chart.LabelAndIntValue(part.label, uint64(part.n))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case s.Emitted == 0:
		md.Cautionf("No records were emitted from %d fetched page(s).", s.Fetched)
	case s.Failed > 0:
		md.Warningf("%d page(s) could not be fetched.", s.Failed)
	default:
		md.Tip("Every fetched page was processed.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeRanked(md *markdown.Markdown, title, keyHeader, countHeader string, counts []Count) {
	md.H2(title)
	md.PlainText("")

	if len(counts) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	if len(counts) > w.top {
		counts = counts[:w.top]
	}
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Key, strconv.Itoa(c.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{keyHeader, countHeader},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by campuscrawl %s*", version.String())
}

// Save writes r as Markdown to path, creating parent directories.
func Save(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := NewMarkdownWriter(f).Write(r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
