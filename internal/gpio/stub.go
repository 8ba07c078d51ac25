//go:build !linux

package gpio

import (
	"context"
	"errors"
	"time"

	"github.com/Lalufu/water-mqtt/internal/meter"
)

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader(chipName string, offset int, debounce time.Duration) (*RealReader, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// WaitEdge is not implemented on non-Linux platforms.
func (r *RealReader) WaitEdge(ctx context.Context, timeout time.Duration) (bool, error) {
	return false, errors.New("gpio: not supported")
}

// ReadEdges is not implemented on non-Linux platforms.
func (r *RealReader) ReadEdges() ([]meter.EdgeEvent, error) {
	return nil, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}
