// Package meter contains the pulse counting logic for the water meter.
// The debounce state machine in this package is pure: it has no GPIO, MQTT,
// or clock dependencies, and event timestamps are always injected.
package meter

import "time"

// DebounceThreshold is the minimum time between two accepted events of the
// same edge type. Anything faster is treated as contact bounce.
const DebounceThreshold = 200 * time.Millisecond

// EdgeType identifies the direction of a line transition.
type EdgeType string

const (
	RisingEdge  EdgeType = "RISING_EDGE"
	FallingEdge EdgeType = "FALLING_EDGE"
)

// EdgeEvent is a single transition on the meter's impulse line.
// Timestamp is monotonic time since an arbitrary origin, as reported by the
// kernel; only deltas between events are meaningful.
type EdgeEvent struct {
	Type      EdgeType
	Timestamp time.Duration
}

// Snapshot is a point-in-time measurement queued for MQTT delivery.
// The JSON field names are the wire format expected by downstream consumers.
type Snapshot struct {
	TimestampMS int64  `json:"water_mqtt_timestamp"`
	Counter     uint64 `json:"counter"`
	Debounced   uint64 `json:"debounced"`
	Serial      string `json:"serial"`
}
