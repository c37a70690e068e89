// Package record builds the per-page output record and fans it out to the
// configured sinks.
package record

import (
	"strings"

	"github.com/jmylchreest/campuscrawl/internal/sitegraph"
	"github.com/jmylchreest/campuscrawl/pkg/extract"
)

// PageRecord is the output for one fetched page. It is not modified after
// it has been emitted.
type PageRecord struct {
	MainURL   string   `json:"main_url" yaml:"main_url"`
	Title     string   `json:"title" yaml:"title"`
	PathsURLs []string `json:"paths_urls" yaml:"paths_urls"`
	Text      string   `json:"text" yaml:"text"`
}

// Build assembles the record for pageURL. edges is the graph listing to
// publish with the page, usually the snapshot returned by Graph.AddPage.
func Build(pageURL string, page extract.Page, edges []sitegraph.Edge) PageRecord {
	title := page.Title
	if strings.TrimSpace(title) == "" {
		title = extract.NoTitle
	}

	return PageRecord{
		MainURL:   pageURL,
		Title:     title,
		PathsURLs: sitegraph.Formatted(edges),
		Text:      Text(page),
	}
}

// Text reconstructs readable text for a page. Every link with anchor text
// contributes "anchor (url)", in link order. Text nodes follow in document
// order, trimmed, skipping empty ones and ones already contained in a link
// string (usually the anchor's own text). Whitespace runs collapse to one
// space.
func Text(page extract.Page) string {
	linkParts := make([]string, 0, len(page.Links))
	for _, l := range page.Links {
		if strings.TrimSpace(l.Text) == "" {
			continue
		}
		linkParts = append(linkParts, l.Text+" ("+l.URL+")")
	}

	parts := append([]string(nil), linkParts...)
	for _, node := range page.TextNodes {
		text := strings.TrimSpace(node)
		if text == "" || containedIn(linkParts, text) {
			continue
		}
		parts = append(parts, text)
	}

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func containedIn(parts []string, s string) bool {
	for _, p := range parts {
		if strings.Contains(p, s) {
			return true
		}
	}
	return false
}
