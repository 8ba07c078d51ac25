package gpio

import (
	"context"
	"time"

	"github.com/Lalufu/water-mqtt/internal/meter"
)

// FakeReader is a test double that returns scripted event batches.
// Each call to WaitEdge consumes the next batch; an empty batch models an
// idle timeout. Once all batches are consumed, WaitEdge blocks until the
// context is cancelled, like an idle hardware line.
type FakeReader struct {
	// Batches contains scripted event batches, one per WaitEdge call.
	Batches [][]meter.EdgeEvent

	// WaitError, if set, is returned by the next WaitEdge call.
	WaitError error

	// Closed tracks if Close was called.
	Closed bool

	index   int
	pending []meter.EdgeEvent
}

// NewFakeReader creates a FakeReader with the given batches.
func NewFakeReader(batches ...[]meter.EdgeEvent) *FakeReader {
	return &FakeReader{Batches: batches}
}

// WaitEdge consumes the next scripted batch.
func (f *FakeReader) WaitEdge(ctx context.Context, timeout time.Duration) (bool, error) {
	if f.WaitError != nil {
		return false, f.WaitError
	}

	if f.index >= len(f.Batches) {
		<-ctx.Done()
		return false, ctx.Err()
	}

	batch := f.Batches[f.index]
	f.index++
	if len(batch) == 0 {
		return false, nil
	}
	f.pending = batch
	return true, nil
}

// ReadEdges returns the current batch.
func (f *FakeReader) ReadEdges() ([]meter.EdgeEvent, error) {
	events := f.pending
	f.pending = nil
	return events, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Exhausted reports whether all batches have been consumed.
func (f *FakeReader) Exhausted() bool {
	return f.index >= len(f.Batches)
}
