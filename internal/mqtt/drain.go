package mqtt

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Lalufu/water-mqtt/internal/buffer"
	"github.com/Lalufu/water-mqtt/internal/metrics"
)

// DefaultRetryInterval is how long the drainer waits before retrying a
// failed publish.
const DefaultRetryInterval = 5 * time.Second

// Drainer moves snapshots from the telemetry buffer to the broker.
// A snapshot that fails to publish is retried until it goes through or the
// context is cancelled; the bounded buffer sheds backlog behind it, so
// overall delivery stays at-most-once with bounded memory.
type Drainer struct {
	Buffer *buffer.Buffer
	Pub    Publisher
	Log    *zap.Logger

	// RetryInterval defaults to DefaultRetryInterval when zero.
	RetryInterval time.Duration
}

// Run drains the buffer until the context is cancelled.
func (d *Drainer) Run(ctx context.Context) error {
	retry := d.RetryInterval
	if retry == 0 {
		retry = DefaultRetryInterval
	}

	d.Log.Info("publisher starting")

	for {
		snap, ok := d.Buffer.Dequeue(ctx)
		if !ok {
			return nil
		}

		payload, err := FormatPayload(snap)
		if err != nil {
			// Snapshots are plain value structs, this cannot happen.
			d.Log.Error("could not serialize snapshot", zap.Error(err))
			continue
		}

		for {
			err := d.Pub.Publish(payload)
			if err == nil {
				metrics.SnapshotsPublished.Inc()
				d.Log.Debug("published snapshot",
					zap.Uint64("counter", snap.Counter),
					zap.Int("buffered", d.Buffer.Len()))
				break
			}

			metrics.PublishErrors.Inc()
			d.Log.Warn("publish failed, retrying",
				zap.Error(err),
				zap.Bool("connected", d.Pub.IsConnected()),
				zap.Duration("retry", retry),
				zap.Int("buffered", d.Buffer.Len()))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retry):
			}
		}
	}
}
