package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns one Link per a[href] below sel, in document order,
// with each href resolved against base. Nothing is deduplicated or filtered:
// an empty href resolves to base itself and mailto: or javascript: links are
// returned as they are. An href that does not parse is returned raw.
//
// Anchor text is looked up by substring: it is the first direct text child
// of the first anchor whose href contains this href. Anchors sharing an href
// prefix can therefore borrow each other's text.
func ExtractLinks(sel *goquery.Selection, base *url.URL) []Link {
	anchors := sel.Find("a[href]")

	hrefs := make([]string, 0, anchors.Length())
	anchors.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		hrefs = append(hrefs, href)
	})

	links := make([]Link, 0, len(hrefs))
	for _, href := range hrefs {
		links = append(links, Link{
			URL:  Resolve(base, href),
			Text: anchorText(anchors, hrefs, href),
		})
	}
	return links
}

// Resolve makes href absolute against base. The fragment is kept so the
// result matches what a browser would request plus its anchor; an href that
// does not parse is returned unchanged.
func Resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func anchorText(anchors *goquery.Selection, hrefs []string, href string) string {
	for i, candidate := range hrefs {
		if !strings.Contains(candidate, href) {
			continue
		}
		if text := firstTextChild(anchors.Eq(i)); text != "" {
			return text
		}
	}
	return ""
}
