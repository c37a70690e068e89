package extract

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTestdata(t *testing.T, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	require.NoError(t, err, "read testdata %s", filename)
	return string(data)
}

func trimmed(nodes []string) []string {
	var out []string
	for _, n := range nodes {
		if s := strings.TrimSpace(n); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func TestHTMLExtractor_DeptA(t *testing.T) {
	e := NewHTMLExtractor("")

	page, err := e.Extract(readTestdata(t, "dept_a.html"), "https://example.org/dept/page1")
	require.NoError(t, err)

	assert.Equal(t, "Dept A", page.Title)
	assert.Equal(t, []Link{{URL: "https://example.org/dept/page2", Text: "More"}}, page.Links)
	assert.Equal(t, []string{"More", "Welcome"}, page.TextNodes)
	assert.Equal(t, []string{"https://example.org/dept/page2"}, page.LinkURLs())
}

func TestHTMLExtractor_Faculty(t *testing.T) {
	e := NewHTMLExtractor(DefaultMainSelector)

	page, err := e.Extract(readTestdata(t, "faculty.html"), "https://example.org/about/faculties/medicine/")
	require.NoError(t, err)

	assert.Equal(t, "Faculty of Medicine", page.Title)

	want := []Link{
		{URL: "https://example.org/about/employee/ivanov", Text: "Ivanov I.I."},
		{URL: "https://example.org/about/faculties/medicine/staff", Text: "Staff"},
		{URL: "https://example.org/about/faculties/medicine/staff?tab=teachers", Text: "Teachers"},
		{URL: "https://example.org/about/faculties/medicine/contacts", Text: ""},
		{URL: "mailto:dean@example.org", Text: "Write to the dean"},
		{URL: "https://example.org/about/faculties/medicine/#top", Text: "Top"},
		// An empty href is contained in every href, so it borrows the first
		// anchor's text.
		{URL: "https://example.org/about/faculties/medicine/", Text: "Ivanov I.I."},
	}
	assert.Equal(t, want, page.Links)

	assert.Equal(t, []string{
		"Faculty of Medicine",
		"Dean:",
		"Ivanov I.I.",
		"Staff",
		"Teachers",
		"Write to the dean",
		"Top",
		"Self",
	}, trimmed(page.TextNodes))
}

func TestHTMLExtractor_MissingMain(t *testing.T) {
	e := NewHTMLExtractor("")

	_, err := e.Extract(readTestdata(t, "no_main.html"), "https://example.org/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingContentRegion)
}

func TestHTMLExtractor_CustomSelector(t *testing.T) {
	e := NewHTMLExtractor("div#content")

	page, err := e.Extract(readTestdata(t, "no_main.html"), "https://example.org/x")
	require.NoError(t, err)

	assert.Equal(t, "No main here", page.Title)
	assert.Empty(t, page.Links)
	assert.Equal(t, []string{"Content without a main element."}, trimmed(page.TextNodes))
}

func TestHTMLExtractor_InvalidPageURL(t *testing.T) {
	e := NewHTMLExtractor("")

	_, err := e.Extract(readTestdata(t, "dept_a.html"), "://no-scheme")
	assert.Error(t, err)
}

func TestTitle_Fallback(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"missing", "<html><head></head><body></body></html>", NoTitle},
		{"empty", "<html><head><title></title></head></html>", NoTitle},
		{"blank", "<html><head><title>   </title></head></html>", NoTitle},
		{"present", "<html><head><title>Library</title></head></html>", "Library"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.want, Title(doc.Selection))
		})
	}
}

func TestExtractLinks_NoDedup(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<main><a href="/a">One</a><a href="/a">Two</a><a href="/b">Bee</a></main>`))
	require.NoError(t, err)
	base, _ := url.Parse("https://example.org/")

	links := ExtractLinks(doc.Find("main"), base)

	assert.Equal(t, []Link{
		{URL: "https://example.org/a", Text: "One"},
		{URL: "https://example.org/a", Text: "One"},
		{URL: "https://example.org/b", Text: "Bee"},
	}, links)
}

func TestExtractLinks_SubstringHeuristic(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<main><a href="/staff/list">List</a><a href="/staff">Staff</a></main>`))
	require.NoError(t, err)
	base, _ := url.Parse("https://example.org/")

	links := ExtractLinks(doc.Find("main"), base)

	require.Len(t, links, 2)
	assert.Equal(t, "List", links[0].Text)
	// "/staff" is a substring of "/staff/list", which comes first.
	assert.Equal(t, "List", links[1].Text)
}

func TestResolve(t *testing.T) {
	base, _ := url.Parse("https://example.org/dept/page1")

	tests := []struct {
		href string
		want string
	}{
		{"/dept/page2", "https://example.org/dept/page2"},
		{"page3", "https://example.org/dept/page3"},
		{"../root", "https://example.org/root"},
		{"https://other.org/x", "https://other.org/x"},
		{"", "https://example.org/dept/page1"},
		{" /padded ", "https://example.org/padded"},
		{"javascript:void(0)", "javascript:void(0)"},
		{"http://[::1", "http://[::1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Resolve(base, tt.href), "href %q", tt.href)
	}
}
