package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/campuscrawl/internal/record"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "crawl.db"), DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "crawl.db")

	s, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, path, s.Path())
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.db")

	s, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.Write(record.PageRecord{MainURL: "https://example.org/", Title: "Home", PathsURLs: []string{}}))
	require.NoError(t, s.Close())

	s, err = Open(path, Options{})
	require.NoError(t, err)
	defer s.Close()

	pages, _, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}

func TestWrite_StoresPageAndEdges(t *testing.T) {
	s := openTestStore(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	rec := record.PageRecord{
		MainURL: "https://example.org/dept/page1",
		Title:   "Dept A",
		PathsURLs: []string{
			"https://example.org/dept/ -> https://example.org/dept/page2",
			"https://example.org/dept/ -> https://example.org/dept/page3",
		},
		Text: "More (https://example.org/dept/page2) Welcome",
	}
	require.NoError(t, s.Write(rec))

	p, err := s.Page(ctx, rec.MainURL)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Dept A", p.Title)
	assert.Equal(t, rec.Text, p.Text)
	assert.True(t, fixed.Equal(p.FetchedAt))

	targets, err := s.Targets(ctx, "https://example.org/dept/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.org/dept/page2", "https://example.org/dept/page3"}, targets)
}

func TestWrite_CumulativeSnapshotsKeepEdgesUnique(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []string{"https://example.org/ -> https://example.org/a"}
	second := append(first, "https://example.org/ -> https://example.org/b")

	require.NoError(t, s.Write(record.PageRecord{MainURL: "https://example.org/a", Title: "A", PathsURLs: first}))
	require.NoError(t, s.Write(record.PageRecord{MainURL: "https://example.org/b", Title: "B", PathsURLs: second}))

	pages, edges, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	assert.Equal(t, 2, edges)
}

func TestWrite_UpsertsPage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(record.PageRecord{MainURL: "https://example.org/", Title: "Old"}))
	require.NoError(t, s.Write(record.PageRecord{MainURL: "https://example.org/", Title: "New"}))

	p, err := s.Page(ctx, "https://example.org/")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "New", p.Title)

	pages, _, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}

func TestWrite_SkipsUnparsablePaths(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Write(record.PageRecord{
		MainURL:   "https://example.org/",
		Title:     "Home",
		PathsURLs: []string{"not an edge"},
	}))

	_, edges, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, edges)
}

func TestPage_Missing(t *testing.T) {
	s := openTestStore(t)

	p, err := s.Page(context.Background(), "https://example.org/nope")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestWrite_AfterClose(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err := s.Write(record.PageRecord{MainURL: "https://example.org/"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStore_AsEmitterSink(t *testing.T) {
	s := openTestStore(t)
	em := record.NewEmitter(s)

	require.NoError(t, em.Emit(record.PageRecord{MainURL: "https://example.org/x", Title: "X"}))
	require.NoError(t, em.Close())

	err := em.Emit(record.PageRecord{MainURL: "https://example.org/y", Title: "Y"})
	assert.ErrorIs(t, err, record.ErrOutputWrite)
}
