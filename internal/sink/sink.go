// Package sink provides append-only destinations for exported records.
package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/jonathan/issues-dataset/internal/records"
)

// Sink receives pages of tagged records in the order they were fetched.
type Sink interface {
	Write(ctx context.Context, recs []records.Record) error
	Close() error
}

// Tee writes every page to all sinks in order, stopping at the first error.
type Tee []Sink

// Write implements Sink.
func (t Tee) Write(ctx context.Context, recs []records.Record) error {
	for _, s := range t {
		if err := s.Write(ctx, recs); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (t Tee) Close() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Discard drops everything written to it.
var Discard Sink = discard{}

type discard struct{}

func (discard) Write(context.Context, []records.Record) error { return nil }
func (discard) Close() error                                 { return nil }

// Memory keeps records in memory. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	records []records.Record
	closed  bool
}

// Write implements Sink.
func (m *Memory) Write(_ context.Context, recs []records.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, recs...)
	return nil
}

// Close implements Sink.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Records returns a copy of everything written so far.
func (m *Memory) Records() []records.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]records.Record(nil), m.records...)
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
