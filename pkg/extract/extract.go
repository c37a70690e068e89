// Package extract pulls the title, outbound links and main-region text out of
// a fetched HTML page.
//
// ContentExtractor is the capability the crawler consumes. HTMLExtractor is
// the goquery implementation; its main-region selector is configurable so the
// same code can serve sites with different markup.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultMainSelector matches the first <main> element inside <body>.
const DefaultMainSelector = "body main"

// NoTitle is the title used when a page has none.
const NoTitle = "No title found"

// ErrMissingContentRegion is returned when the page has no element matching
// the main-region selector.
var ErrMissingContentRegion = errors.New("missing content region")

// Link is an outbound anchor resolved against the page URL.
type Link struct {
	URL  string // absolute URL, or the raw href when it cannot be parsed
	Text string // best-effort anchor text, may be empty
}

// Page is what the crawler needs from one fetched document.
type Page struct {
	Title     string
	Links     []Link
	TextNodes []string // raw text nodes of the main region, document order
}

// LinkURLs returns the URL of every link, in order.
func (p Page) LinkURLs() []string {
	out := make([]string, len(p.Links))
	for i, l := range p.Links {
		out[i] = l.URL
	}
	return out
}

// ContentExtractor turns a page body into a Page.
type ContentExtractor interface {
	Extract(body string, pageURL string) (Page, error)
}

// HTMLExtractor implements ContentExtractor with goquery.
type HTMLExtractor struct {
	MainSelector string
}

// NewHTMLExtractor creates an extractor for the given main-region selector.
// An empty selector uses DefaultMainSelector.
func NewHTMLExtractor(mainSelector string) *HTMLExtractor {
	if mainSelector == "" {
		mainSelector = DefaultMainSelector
	}
	return &HTMLExtractor{MainSelector: mainSelector}
}

// Extract parses body and returns its title plus the links and text nodes of
// the first element matching MainSelector.
func (e *HTMLExtractor) Extract(body string, pageURL string) (Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("parse page url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}

	selector := e.MainSelector
	if selector == "" {
		selector = DefaultMainSelector
	}

	main := doc.Find(selector).First()
	if main.Length() == 0 {
		return Page{}, fmt.Errorf("%w: no %q in %s", ErrMissingContentRegion, selector, pageURL)
	}

	return Page{
		Title:     Title(doc.Selection),
		Links:     ExtractLinks(main, base),
		TextNodes: TextNodes(main),
	}, nil
}

// Title returns the first text child of the document's <head><title>, or
// NoTitle when there is none or it is blank.
func Title(doc *goquery.Selection) string {
	title := strings.TrimSpace(firstTextChild(doc.Find("head title")))
	if title == "" {
		return NoTitle
	}
	return title
}

// TextNodes returns every text node below sel in document order, untrimmed.
func TextNodes(sel *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}

// firstTextChild returns the first direct text child of the matched elements,
// scanning them in document order.
func firstTextChild(sel *goquery.Selection) string {
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				return c.Data
			}
		}
	}
	return ""
}
