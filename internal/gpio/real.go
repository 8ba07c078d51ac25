//go:build linux

package gpio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/Lalufu/water-mqtt/internal/meter"
)

// eventBacklog bounds the bridge channel between the gpiocdev event handler
// and WaitEdge. With 200 ms hardware debounce the line cannot produce events
// anywhere near this fast, so the channel never fills in practice.
const eventBacklog = 64

// RealReader reads edge events from actual hardware using the Linux GPIO
// character device.
type RealReader struct {
	chip    *gpiocdev.Chip
	line    *gpiocdev.Line
	events  chan meter.EdgeEvent
	pending []meter.EdgeEvent
}

// NewRealReader requests exclusive access to the given chip and line with
// pull-up bias, both-edge detection, and the given hardware debounce period.
func NewRealReader(chipName string, offset int, debounce time.Duration) (*RealReader, error) {
	r := &RealReader{events: make(chan meter.EdgeEvent, eventBacklog)}

	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("water-mqtt"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(r.handleEvent))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request line %d: %w", offset, err)
	}

	r.chip = chip
	r.line = line
	return r, nil
}

// handleEvent runs on gpiocdev's event goroutine and bridges events into
// the channel consumed by WaitEdge.
func (r *RealReader) handleEvent(evt gpiocdev.LineEvent) {
	var typ meter.EdgeType
	switch evt.Type {
	case gpiocdev.LineEventRisingEdge:
		typ = meter.RisingEdge
	case gpiocdev.LineEventFallingEdge:
		typ = meter.FallingEdge
	default:
		return
	}

	select {
	case r.events <- meter.EdgeEvent{Type: typ, Timestamp: evt.Timestamp}:
	default:
		// Backlog full; the event is lost. Cannot happen with hardware
		// debounce unless the consumer has stalled for minutes.
	}
}

// WaitEdge blocks until an event arrives, the timeout expires, or the context
// is cancelled.
func (r *RealReader) WaitEdge(ctx context.Context, timeout time.Duration) (bool, error) {
	if len(r.pending) > 0 {
		return true, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-r.events:
		r.pending = append(r.pending, ev)
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// ReadEdges drains all pending events and returns them in timestamp order.
func (r *RealReader) ReadEdges() ([]meter.EdgeEvent, error) {
	events := r.pending
	r.pending = nil

	for {
		select {
		case ev := <-r.events:
			events = append(events, ev)
		default:
			sort.SliceStable(events, func(i, j int) bool {
				return events[i].Timestamp < events[j].Timestamp
			})
			return events, nil
		}
	}
}

// Close releases the line and chip.
func (r *RealReader) Close() error {
	var errs []error
	if r.line != nil {
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
