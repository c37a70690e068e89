// Package seeds reads and writes crawl seed lists.
//
// Two input layouts are accepted: a CSV file whose header has a "url"
// column, or plain text with one URL per line where blank lines and lines
// starting with "#" are ignored. The CSV layout is the one written by
// WriteCSV, so the output of a discovery run can seed a crawl directly.
package seeds

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// Column is the CSV header naming the URL column.
const Column = "url"

const bom = "\ufeff"

var (
	// ErrNoSeeds is returned when the input holds no URLs.
	ErrNoSeeds = errors.New("no seed urls")

	// ErrMissingColumn is returned for CSV input without a url column.
	ErrMissingColumn = errors.New("csv header has no url column")
)

// Load reads seeds from the file at path.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seeds: %w", err)
	}
	defer func() { _ = f.Close() }()

	urls, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return urls, nil
}

// Parse reads seeds from r. Duplicate URLs are dropped; the first
// occurrence keeps its position.
func Parse(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}

	var urls []string
	if isCSV(data) {
		urls, err = parseCSV(data)
	} else {
		urls, err = parseLines(data)
	}
	if err != nil {
		return nil, err
	}

	urls = dedupe(urls)
	if len(urls) == 0 {
		return nil, ErrNoSeeds
	}
	return urls, nil
}

// isCSV reports whether the first meaningful line looks like a CSV header.
func isCSV(data []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), bom))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, ",") {
			return true
		}
		return strings.EqualFold(strings.Trim(line, `"`), Column)
	}
	return false
}

func parseCSV(data []byte) ([]string, error) {
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte(bom))))
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := slices.IndexFunc(header, func(h string) bool {
		return strings.EqualFold(strings.TrimSpace(h), Column)
	})
	if col < 0 {
		return nil, ErrMissingColumn
	}

	var urls []string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if col >= len(row) {
			continue
		}
		if u := strings.TrimSpace(row[col]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func parseLines(data []byte) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}
	return urls, nil
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := urls[:0]
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// WriteCSV writes urls as a single-column CSV with a "url" header, sorted.
func WriteCSV(w io.Writer, urls []string) error {
	sorted := slices.Clone(urls)
	slices.Sort(sorted)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{Column}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, u := range sorted {
		if err := cw.Write([]string{u}); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes urls to path with WriteCSV, replacing any existing file.
func SaveCSV(path string, urls []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, urls); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
