// Package output serializes crawl results: the line-delimited page record
// stream and whole-document exports such as the site graph.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ParseFormat maps a format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", name)
	}
}

// FormatFromPath guesses the format from a file extension, defaulting to
// JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Writer handles output serialization.
type Writer interface {
	// Write outputs a single value. Stream formats write it immediately,
	// document formats buffer it until Flush.
	Write(data any) error

	// Flush ensures all data is written.
	Flush() error

	// Close flushes and releases resources.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
	sync   bool
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// WithSync makes stream writers fsync after every line when the destination
// supports it.
func WithSync(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.sync = enabled
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		jw := NewJSONLWriter(w)
		jw.sync = cfg.sync
		return jw, nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Create opens path and returns a writer for it that closes the file on
// Close. JSONL files are opened for appending so an existing stream is
// extended; other formats truncate.
func Create(path string, format Format, opts ...WriterOption) (Writer, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if format == FormatJSONL {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, flags, 0o644) //#nosec G304 -- CLI tool writes to user-specified output file
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}

	w, err := NewWriter(f, format, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fileWriter{Writer: w, f: f}, nil
}

type fileWriter struct {
	Writer
	f *os.File
}

func (w *fileWriter) Close() error {
	werr := w.Writer.Close()
	ferr := w.f.Close()
	if werr != nil {
		return werr
	}
	return ferr
}
