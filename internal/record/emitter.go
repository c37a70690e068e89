package record

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jmylchreest/campuscrawl/internal/logger"
	"github.com/jmylchreest/campuscrawl/internal/output"
)

// ErrOutputWrite is returned when a record cannot be written. It is fatal to
// a crawl run.
var ErrOutputWrite = errors.New("output write failed")

// Sink receives emitted records. Write must persist the whole record or
// fail; a partially written record is never acceptable.
type Sink interface {
	Write(rec PageRecord) error
	Close() error
}

// StreamSink writes records to an output.Writer, normally a JSONL stream.
type StreamSink struct {
	W output.Writer
}

// Write writes rec as one value.
func (s StreamSink) Write(rec PageRecord) error {
	return s.W.Write(rec)
}

// Close closes the underlying writer.
func (s StreamSink) Close() error {
	return s.W.Close()
}

// Emitter serializes records to its sinks. Records reach every sink in the
// same order, the order Emit was called.
type Emitter struct {
	mu     sync.Mutex
	sinks  []Sink
	count  int
	closed bool
}

// NewEmitter creates an emitter writing to sinks, in order.
func NewEmitter(sinks ...Sink) *Emitter {
	return &Emitter{sinks: sinks}
}

// Emit writes rec to every sink. Any failure is wrapped in ErrOutputWrite.
func (e *Emitter) Emit(rec PageRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("%w: emitter closed", ErrOutputWrite)
	}

	for _, s := range e.sinks {
		if err := s.Write(rec); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrOutputWrite, rec.MainURL, err)
		}
	}
	e.count++

	logger.Debug("record emitted", "url", rec.MainURL, "edges", len(rec.PathsURLs), "text_len", len(rec.Text))
	return nil
}

// Count returns the number of records emitted.
func (e *Emitter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Close closes every sink once. Later calls return nil.
func (e *Emitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	for _, s := range e.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
