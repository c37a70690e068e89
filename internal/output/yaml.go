package output

import (
	"bufio"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes a single YAML document, buffered until Flush like
// JSONWriter.
type YAMLWriter struct {
	w     *bufio.Writer
	items []any
	done  bool
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{w: bufio.NewWriter(w)}
}

// Write buffers a single value.
func (w *YAMLWriter) Write(data any) error {
	w.items = append(w.items, data)
	return nil
}

// Flush writes the buffered document. Later calls are no-ops.
func (w *YAMLWriter) Flush() error {
	if w.done || len(w.items) == 0 {
		return nil
	}

	var doc any = w.items
	if len(w.items) == 1 {
		doc = w.items[0]
	}

	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return err
	}

	w.done = true
	return w.w.Flush()
}

// Close flushes the document.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
