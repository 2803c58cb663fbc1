// Package storage persists collected listings. Sinks are append-oriented
// so the collector can flush partial batches mid-run without losing work
// on interruption.
package storage

import (
	"context"

	"github.com/tuitiondata/collector/pkg/listing"
)

// Sink receives batches of listings. Append must tolerate being called
// repeatedly with overlapping batches; duplicate identities are the
// sink's problem to resolve.
type Sink interface {
	// Append persists a batch, merging with anything already stored.
	Append(ctx context.Context, batch []listing.Listing) error

	// Close releases any held resources.
	Close(ctx context.Context) error
}

// MultiSink fans a batch out to several sinks. The first error is
// returned after every sink has been attempted, so a broken database
// never costs the CSV copy.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks into one.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Append writes the batch to every sink.
func (m *MultiSink) Append(ctx context.Context, batch []listing.Listing) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Append(ctx, batch); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every sink.
func (m *MultiSink) Close(ctx context.Context) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
