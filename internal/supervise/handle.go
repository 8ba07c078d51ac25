// Package supervise starts the gateway components, gates startup on a valid
// counter, monitors liveness, and performs the coordinated shutdown.
package supervise

import (
	"context"
	"sync"
	"time"
)

// Component is a supervised unit of work running in its own goroutine.
// It is alive until its run function returns, for any reason.
type Component struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Start launches run in a goroutine under a child context of ctx and returns
// a handle for it.
func Start(ctx context.Context, name string, run func(context.Context) error) *Component {
	cctx, cancel := context.WithCancel(ctx)
	c := &Component{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		err := run(cctx)
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	}()

	return c
}

// Name returns the component's name.
func (c *Component) Name() string {
	return c.name
}

// Alive reports whether the component's run function is still running.
func (c *Component) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Terminate cancels the component's context. It does not wait.
func (c *Component) Terminate() {
	c.cancel()
}

// Wait blocks until the component has stopped or the timeout expires.
// It reports whether the component stopped in time.
func (c *Component) Wait(timeout time.Duration) bool {
	select {
	case <-c.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Err returns the error the run function returned, if it has returned.
func (c *Component) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
