// Package mqtt provides snapshot publishing to an MQTT broker, with
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Lalufu/water-mqtt/internal/meter"
)

// DefaultTopic is the topic template used when none is configured.
// The {serial} placeholder is replaced with the meter's serial number.
const DefaultTopic = "water-mqtt/tele/{serial}/SENSOR"

// Topic expands the {serial} placeholder in a topic template.
func Topic(template, serial string) string {
	return strings.ReplaceAll(template, "{serial}", serial)
}

// BrokerURL builds a plain-TCP broker address from host and port.
func BrokerURL(host string, port int) string {
	return fmt.Sprintf("tcp://%s:%d", host, port)
}

// Publisher publishes snapshot payloads to a broker.
type Publisher interface {
	// Publish sends a payload to the broker.
	Publish(payload []byte) error

	// IsConnected reports whether the broker connection is active.
	IsConnected() bool

	// Close disconnects from the broker.
	Close() error
}

// FormatPayload creates the JSON payload for a measurement snapshot.
func FormatPayload(s meter.Snapshot) ([]byte, error) {
	return json.Marshal(s)
}
