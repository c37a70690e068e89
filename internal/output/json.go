package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// JSONWriter writes a single JSON document. Values are buffered until Flush;
// one value is written as is, several as an array.
type JSONWriter struct {
	w      *bufio.Writer
	pretty bool
	indent string
	items  []any
	done   bool
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
	}
}

// Write buffers a single value.
func (w *JSONWriter) Write(data any) error {
	w.items = append(w.items, data)
	return nil
}

// Flush writes the buffered document. Later calls are no-ops.
func (w *JSONWriter) Flush() error {
	if w.done || len(w.items) == 0 {
		return nil
	}

	var doc any = w.items
	if len(w.items) == 1 {
		doc = w.items[0]
	}

	indent := ""
	if w.pretty {
		indent = w.indent
	}
	output, err := encode(doc, indent)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	w.done = true
	return w.w.Flush()
}

// Close flushes the document.
func (w *JSONWriter) Close() error {
	return w.Flush()
}

// encode marshals v followed by a newline. URLs and "->" edges are kept
// readable: <, > and & are not escaped.
func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSONLWriter writes newline-delimited JSON. Each value is marshaled in full
// and handed to the destination in a single Write, so a reader never sees a
// partial line unless the destination itself splits writes.
type JSONLWriter struct {
	mu   sync.Mutex
	w    io.Writer
	sync bool
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{w: w}
}

type syncer interface {
	Sync() error
}

// Write writes a single value as one JSON line.
func (w *JSONLWriter) Write(data any) error {
	line, err := encode(data, "")
	if err != nil {
		return fmt.Errorf("marshal json line: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.w.Write(line)
	if err != nil {
		return err
	}
	if n != len(line) {
		return io.ErrShortWrite
	}

	if w.sync {
		if s, ok := w.w.(syncer); ok {
			return s.Sync()
		}
	}
	return nil
}

// Flush syncs the destination when WithSync was set and the destination
// supports it. Lines are never buffered, so there is nothing else to do.
func (w *JSONLWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.sync {
		return nil
	}
	if s, ok := w.w.(syncer); ok {
		return s.Sync()
	}
	return nil
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}
