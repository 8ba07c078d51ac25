// Package gpio provides edge-event access to the meter's impulse line with
// hardware abstraction. The real implementation uses the Linux GPIO character
// device; the fake implementation allows testing without hardware.
package gpio

import (
	"context"
	"time"

	"github.com/Lalufu/water-mqtt/internal/meter"
)

// Reader delivers edge events from a GPIO line.
type Reader interface {
	// WaitEdge blocks until at least one edge event is pending, returning
	// true. It returns (false, nil) when the timeout expires with no events
	// and an error when the context is cancelled.
	WaitEdge(ctx context.Context, timeout time.Duration) (bool, error)

	// ReadEdges returns all pending events, ordered by timestamp.
	ReadEdges() ([]meter.EdgeEvent, error)

	// Close releases the line.
	Close() error
}
