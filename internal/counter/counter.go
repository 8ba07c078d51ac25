// Package counter provides the shared meter counter and its persistence.
//
// The counter is the only piece of state mutated by more than one component:
// the meter increments it on accepted pulses and the HTTP override endpoint
// may overwrite it. All access goes through the mutex, held only for the
// read-modify-write itself, never across I/O.
package counter

import "sync"

// Counter is a mutex-guarded monotonic counter. A value of 0 means "not yet
// initialized"; the supervisor refuses to start the metering pipeline until
// the value is non-zero (loaded from disk or set via the override endpoint).
type Counter struct {
	mu    sync.Mutex
	value uint64
}

// New creates a Counter with value 0.
func New() *Counter {
	return &Counter{}
}

// Increment adds one and returns the new value.
func (c *Counter) Increment() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value++
	return c.value
}

// Get returns the current value.
func (c *Counter) Get() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set overwrites the value unconditionally. Used by the override endpoint
// and when loading the persisted counter at startup. Concurrent Set and
// Increment are serialized by the mutex; last writer wins.
func (c *Counter) Set(v uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
}
