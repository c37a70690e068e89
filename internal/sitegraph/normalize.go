// Package sitegraph holds the crawl-lifetime state of a run: the set of
// visited URLs and the directed graph of path prefixes to page URLs.
package sitegraph

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedURL is returned when a URL lacks a scheme or host and cannot
// be turned into a base path.
var ErrMalformedURL = errors.New("malformed url")

// BasePath returns the directory that contains rawURL: scheme, host and the
// path with its last segment removed, always ending in a single slash.
//
//	https://example.org/dept/page2  -> https://example.org/dept/
//	https://example.org/dept/       -> https://example.org/
//	https://example.org/            -> https://example.org/
//
// Query and fragment are dropped.
func BasePath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q has no scheme or host", ErrMalformedURL, rawURL)
	}

	segments := strings.Split(strings.TrimRight(u.EscapedPath(), "/"), "/")
	parent := strings.Join(segments[:len(segments)-1], "/")

	return u.Scheme + "://" + u.Host + parent + "/", nil
}

// VisitKey canonicalizes a URL for visited-set membership. The fragment is
// removed and scheme and host are lowercased; the path, including any
// trailing slash, is kept as is because it changes the page's base path.
// Unparseable input is returned unchanged.
func VisitKey(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}
