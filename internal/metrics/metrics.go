// Package metrics defines the Prometheus collectors for the gateway.
// They are served by the override endpoint's HTTP server under /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GPIO / debounce metrics
	EdgeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "water_edge_events_total",
		Help: "Total number of edge events read from the GPIO line",
	}, []string{"type"})

	EdgesDebounced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "water_edges_debounced_total",
		Help: "Total number of edge events rejected by the debounce rule",
	})

	PulsesCounted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "water_pulses_total",
		Help: "Total number of accepted falling edges counted as pulses",
	})

	CounterValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "water_counter_value",
		Help: "Current value of the meter counter",
	})

	CounterOverrides = promauto.NewCounter(prometheus.CounterOpts{
		Name: "water_counter_overrides_total",
		Help: "Total number of successful counter overrides via HTTP",
	})

	// Telemetry buffer / publisher metrics
	SnapshotsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "water_snapshots_dropped_total",
		Help: "Total number of snapshots dropped because the buffer was full",
	})

	SnapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "water_snapshots_published_total",
		Help: "Total number of snapshots delivered to the MQTT broker",
	})

	PublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "water_publish_errors_total",
		Help: "Total number of failed MQTT publish attempts",
	})
)
