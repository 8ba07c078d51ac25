// Package buffer provides the bounded telemetry queue between the meter and
// the MQTT publisher. It absorbs bursts and broker outages up to its capacity
// and then sheds the newest snapshots; it is never persisted.
package buffer

import (
	"context"
	"sync/atomic"

	"github.com/Lalufu/water-mqtt/internal/meter"
	"github.com/Lalufu/water-mqtt/internal/metrics"
)

// Buffer is a fixed-capacity FIFO of measurement snapshots.
type Buffer struct {
	ch      chan meter.Snapshot
	dropped atomic.Uint64
}

// New creates a Buffer with the given capacity.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{ch: make(chan meter.Snapshot, capacity)}
}

// TryEnqueue adds a snapshot without blocking. If the buffer is full the
// snapshot is dropped and false is returned.
func (b *Buffer) TryEnqueue(s meter.Snapshot) bool {
	select {
	case b.ch <- s:
		return true
	default:
		b.dropped.Add(1)
		metrics.SnapshotsDropped.Inc()
		return false
	}
}

// Dequeue blocks until a snapshot is available or the context is cancelled,
// in which case it returns false.
func (b *Buffer) Dequeue(ctx context.Context) (meter.Snapshot, bool) {
	select {
	case s := <-b.ch:
		return s, true
	case <-ctx.Done():
		return meter.Snapshot{}, false
	}
}

// Len returns the number of queued snapshots.
func (b *Buffer) Len() int {
	return len(b.ch)
}

// Dropped returns the number of snapshots dropped due to overflow.
func (b *Buffer) Dropped() uint64 {
	return b.dropped.Load()
}
