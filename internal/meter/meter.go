package meter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Lalufu/water-mqtt/internal/counter"
	"github.com/Lalufu/water-mqtt/internal/metrics"
)

// DefaultIdleTimeout is how long the run loop waits for an edge before
// emitting a heartbeat snapshot anyway.
const DefaultIdleTimeout = 60 * time.Second

// EdgeSource provides edge events from the hardware line.
// WaitEdge blocks until at least one event is pending, the timeout expires
// (false, nil), or the context is cancelled.
type EdgeSource interface {
	WaitEdge(ctx context.Context, timeout time.Duration) (bool, error)
	ReadEdges() ([]EdgeEvent, error)
}

// Sink receives snapshots for delivery. TryEnqueue must not block.
type Sink interface {
	TryEnqueue(Snapshot) bool
}

// Meter drives the debounce state machine from an edge source, increments the
// shared counter on accepted falling edges, and emits one snapshot per
// wake-up (event batch or idle timeout).
type Meter struct {
	Source  EdgeSource
	Counter *counter.Counter
	Sink    Sink
	Serial  string
	Log     *zap.Logger

	// IdleTimeout defaults to DefaultIdleTimeout when zero.
	IdleTimeout time.Duration
	// Threshold defaults to DebounceThreshold when zero.
	Threshold time.Duration
	// Now defaults to time.Now. Injectable for tests.
	Now func() time.Time

	deb *Debouncer
}

func (m *Meter) init() {
	if m.IdleTimeout == 0 {
		m.IdleTimeout = DefaultIdleTimeout
	}
	if m.Threshold == 0 {
		m.Threshold = DebounceThreshold
	}
	if m.Now == nil {
		m.Now = time.Now
	}
	if m.deb == nil {
		m.deb = NewDebouncer(m.Threshold)
	}
}

// Run processes edge events until the context is cancelled.
// Failures of the edge source are returned and terminate the component.
func (m *Meter) Run(ctx context.Context) error {
	m.init()
	m.Log.Info("meter starting", zap.String("serial", m.Serial))

	for {
		if err := m.cycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// cycle performs one wait-process-snapshot iteration.
func (m *Meter) cycle(ctx context.Context) error {
	pending, err := m.Source.WaitEdge(ctx, m.IdleTimeout)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("wait for edge events: %w", err)
	}

	if pending {
		events, err := m.Source.ReadEdges()
		if err != nil {
			return fmt.Errorf("read edge events: %w", err)
		}
		m.processEvents(events)
	}

	snap := Snapshot{
		TimestampMS: m.Now().UnixMilli(),
		Counter:     m.Counter.Get(),
		Debounced:   m.deb.Debounced(),
		Serial:      m.Serial,
	}
	// Full buffer means the publisher is behind; freshness beats completeness.
	m.Sink.TryEnqueue(snap)
	return nil
}

// processEvents applies the debounce rule to a batch of events, already in
// timestamp order, counting accepted falling edges.
func (m *Meter) processEvents(events []EdgeEvent) {
	for _, ev := range events {
		m.Log.Debug("edge event",
			zap.String("type", string(ev.Type)),
			zap.Duration("timestamp", ev.Timestamp))
		metrics.EdgeEvents.WithLabelValues(string(ev.Type)).Inc()

		accepted, delta := m.deb.Process(ev)
		if !accepted {
			metrics.EdgesDebounced.Inc()
			m.Log.Debug("suspiciously small event delta, ignoring",
				zap.Duration("delta", delta))
			m.logHistory()
			continue
		}

		if ev.Type != FallingEdge {
			continue
		}

		v := m.Counter.Increment()
		metrics.PulsesCounted.Inc()
		metrics.CounterValue.Set(float64(v))
		m.Log.Info("counter incremented",
			zap.Uint64("counter", v),
			zap.Duration("delta", delta),
			zap.Uint64("debounced", m.deb.Debounced()))
	}
}

// logHistory dumps the rolling event history at debug level, newest first.
func (m *Meter) logHistory() {
	history := m.deb.History()
	for i, ev := range history {
		f := []zap.Field{
			zap.String("type", string(ev.Type)),
			zap.Duration("timestamp", ev.Timestamp),
		}
		if i < len(history)-1 {
			f = append(f, zap.Duration("delta", ev.Timestamp-history[i+1].Timestamp))
		}
		m.Log.Debug("recent event", f...)
	}
}
