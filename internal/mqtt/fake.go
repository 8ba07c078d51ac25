package mqtt

import (
	"errors"
	"sync"
)

var errPublishFailed = errors.New("publish failed")

// FakePublisher records published payloads for test assertions.
// It is safe to query while a Drainer is publishing to it.
type FakePublisher struct {
	// Payloads contains the payloads that were published. Read it directly
	// only after the publishing goroutine has stopped; use PayloadCount
	// while it is running.
	Payloads [][]byte

	// FailFirst makes the first N Publish calls fail.
	FailFirst int

	// PublishError, if set, is returned by every Publish call.
	PublishError error

	// Connected controls the return value of IsConnected.
	Connected bool

	// Closed tracks if Close was called.
	Closed bool

	mu       sync.Mutex
	attempts int
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

// Publish records the payload, or fails if scripted to.
func (f *FakePublisher) Publish(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	f.attempts++
	if f.attempts <= f.FailFirst {
		return errPublishFailed
	}

	f.Payloads = append(f.Payloads, payload)
	return nil
}

// IsConnected reports the scripted connection state.
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// PayloadCount returns the number of successfully published payloads.
func (f *FakePublisher) PayloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Payloads)
}

// Attempts returns the number of Publish calls made.
func (f *FakePublisher) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}
