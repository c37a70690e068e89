// Package store persists page records to SQLite.
//
// A Store is a record.Sink: every emitted record upserts its page row and
// inserts the edges of its paths_urls in a single transaction, so a record
// is either stored whole or not at all. The edges table is a set; cumulative
// snapshots re-sending known edges leave it unchanged.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jmylchreest/campuscrawl/internal/record"
	"github.com/jmylchreest/campuscrawl/internal/sitegraph"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("store closed")

// Options configures a Store.
type Options struct {
	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{EnableWAL: true}
}

// Store is a SQLite-backed record sink.
type Store struct {
	db     *sql.DB
	path   string
	now    func() time.Time
	closed atomic.Bool
}

// Page is a stored page row.
type Page struct {
	MainURL   string
	Title     string
	Text      string
	FetchedAt time.Time
}

// Open opens or creates the database file at path, creating parent
// directories as needed.
func Open(path string, opts Options) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite has a single writer; one connection also keeps pragmas in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path, now: time.Now}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		main_url TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		text TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		UNIQUE(source, target)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Write stores rec in one transaction.
func (s *Store) Write(rec record.PageRecord) error {
	return s.WriteContext(context.Background(), rec)
}

// WriteContext is Write with a caller-supplied context.
func (s *Store) WriteContext(ctx context.Context, rec record.PageRecord) (err error) {
	if s.closed.Load() {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO pages (main_url, title, text, fetched_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(main_url) DO UPDATE SET
		title = excluded.title,
		text = excluded.text,
		fetched_at = excluded.fetched_at
	`, rec.MainURL, rec.Title, rec.Text, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert page %s: %w", rec.MainURL, err)
	}

	if len(rec.PathsURLs) > 0 {
		stmt, perr := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO edges (source, target) VALUES (?, ?)`)
		if perr != nil {
			return fmt.Errorf("prepare edge insert: %w", perr)
		}
		defer func() { _ = stmt.Close() }()

		for _, p := range rec.PathsURLs {
			e, ok := sitegraph.ParseEdge(p)
			if !ok {
				continue
			}
			if _, xerr := stmt.ExecContext(ctx, e.Source, e.Target); xerr != nil {
				return fmt.Errorf("insert edge %q: %w", p, xerr)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit page %s: %w", rec.MainURL, err)
	}
	return nil
}

// Close closes the database. Later writes fail with ErrClosed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Page returns the stored row for mainURL, or nil when absent.
func (s *Store) Page(ctx context.Context, mainURL string) (*Page, error) {
	var p Page
	var fetchedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT main_url, title, text, fetched_at FROM pages WHERE main_url = ?`, mainURL,
	).Scan(&p.MainURL, &p.Title, &p.Text, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, fetchedAt); err == nil {
		p.FetchedAt = t
	}
	return &p, nil
}

// Targets returns the targets of source's edges in insertion order.
func (s *Store) Targets(ctx context.Context, source string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT target FROM edges WHERE source = ? ORDER BY id`, source)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var targets []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// Counts returns the number of stored pages and edges.
func (s *Store) Counts(ctx context.Context) (pages, edges int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&pages); err != nil {
		return 0, 0, fmt.Errorf("count pages: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&edges); err != nil {
		return 0, 0, fmt.Errorf("count edges: %w", err)
	}
	return pages, edges, nil
}
