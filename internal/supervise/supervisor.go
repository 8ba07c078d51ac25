package supervise

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Lalufu/water-mqtt/internal/counter"
)

// State is the supervisor's lifecycle state.
type State int

const (
	StateInitializing State = iota
	StateAwaitingValidCounter
	StateRunning
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateAwaitingValidCounter:
		return "AwaitingValidCounter"
	case StateRunning:
		return "Running"
	case StateShuttingDown:
		return "ShuttingDown"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInterrupted is returned by Run when shutdown was triggered by an
// external interrupt rather than a component death.
var ErrInterrupted = errors.New("interrupted")

// StartFunc launches a component under the given context.
type StartFunc func(ctx context.Context) *Component

// Supervisor sequences startup, detects component failure, and guarantees a
// final counter flush on the way out. A dead component is never restarted:
// exactly one process may own the hardware line at a time, and a silent
// partial restart risks duplicate or missed pulses. Run always returns a
// non-nil error so the caller exits non-zero.
type Supervisor struct {
	Counter *counter.Counter
	Store   *counter.Store
	Log     *zap.Logger

	StartHTTP      StartFunc
	StartMeter     StartFunc
	StartPublisher StartFunc

	// GateInterval is the counter poll interval while waiting for a valid
	// counter. Defaults to 1s.
	GateInterval time.Duration
	// LivenessInterval is the component poll interval. Defaults to 1s.
	LivenessInterval time.Duration
	// PersistInterval is the periodic counter save interval. Defaults to 60s.
	PersistInterval time.Duration
	// StopTimeout is how long shutdown waits for each component. Defaults
	// to 5s.
	StopTimeout time.Duration

	state State
}

// State returns the supervisor's current state. Only meaningful once Run
// has returned, or from within Run itself.
func (s *Supervisor) State() State {
	return s.state
}

// Run drives the supervisor until shutdown and returns the reason.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.GateInterval == 0 {
		s.GateInterval = time.Second
	}
	if s.LivenessInterval == 0 {
		s.LivenessInterval = time.Second
	}
	if s.PersistInterval == 0 {
		s.PersistInterval = 60 * time.Second
	}
	if s.StopTimeout == 0 {
		s.StopTimeout = 5 * time.Second
	}

	s.state = StateInitializing

	if v, err := s.Store.Load(); err != nil {
		// Not fatal. The counter stays 0 and startup blocks until an
		// operator sets it via the override endpoint.
		s.Log.Warn("could not read persisted counter", zap.Error(err))
	} else {
		s.Log.Info("read persisted counter",
			zap.Uint64("counter", v),
			zap.String("file", s.Store.Path()))
		s.Counter.Set(v)
	}
	lastSaved := s.Counter.Get()

	// The override endpoint starts first so an operator can correct the
	// counter before pulse counting begins.
	httpComp := s.StartHTTP(ctx)
	procs := []*Component{httpComp}

	s.state = StateAwaitingValidCounter
	reason := s.awaitValidCounter(ctx, httpComp)

	if reason == nil {
		s.state = StateRunning
		s.Log.Info("counter valid, starting meter and publisher",
			zap.Uint64("counter", s.Counter.Get()))
		procs = append(procs, s.StartMeter(ctx), s.StartPublisher(ctx))
		reason = s.watch(ctx, procs, &lastSaved)
	}

	s.state = StateShuttingDown
	s.Log.Info("shutting down", zap.Error(reason))
	s.stopAll(procs)

	// Final flush, unconditional. Failure is logged, not propagated: the
	// shutdown reason is what the operator needs to see.
	v := s.Counter.Get()
	if err := s.Store.Save(v); err != nil {
		s.Log.Error("could not persist counter at shutdown", zap.Error(err))
	} else {
		s.Log.Info("persisted counter at shutdown", zap.Uint64("counter", v))
	}

	return reason
}

// awaitValidCounter polls until the counter is non-zero. A 0 counter is
// indistinguishable from "never initialized", and publishing telemetry off an
// uninitialized counter would be misleading, so the metering pipeline is held
// back. Returns nil when the gate opens, or the shutdown reason.
func (s *Supervisor) awaitValidCounter(ctx context.Context, httpComp *Component) error {
	s.Log.Info("waiting for counter to be non-zero")
	for {
		if s.Counter.Get() > 0 {
			return nil
		}
		if !httpComp.Alive() {
			return componentDied(httpComp)
		}

		select {
		case <-ctx.Done():
			return ErrInterrupted
		case <-time.After(s.GateInterval):
		}
	}
}

// watch polls component liveness and periodically persists the counter until
// something dies or the context is cancelled.
func (s *Supervisor) watch(ctx context.Context, procs []*Component, lastSaved *uint64) error {
	liveness := time.NewTicker(s.LivenessInterval)
	defer liveness.Stop()
	persist := time.NewTicker(s.PersistInterval)
	defer persist.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Log.Info("caught interrupt, exiting")
			return ErrInterrupted

		case <-liveness.C:
			for _, p := range procs {
				if !p.Alive() {
					err := componentDied(p)
					s.Log.Error("component died, terminating program",
						zap.String("component", p.Name()),
						zap.Error(p.Err()))
					return err
				}
			}

		case <-persist.C:
			s.persistIfChanged(lastSaved)
		}
	}
}

// persistIfChanged saves the counter unless it is 0 (not yet valid) or
// unchanged since the last successful save.
func (s *Supervisor) persistIfChanged(lastSaved *uint64) {
	v := s.Counter.Get()
	if v == 0 {
		s.Log.Debug("counter is 0, not writing")
		return
	}
	if v == *lastSaved {
		s.Log.Debug("counter has not changed, not writing")
		return
	}

	if err := s.Store.Save(v); err != nil {
		s.Log.Error("could not persist counter", zap.Error(err))
		return
	}
	*lastSaved = v
	s.Log.Debug("persisted counter", zap.Uint64("counter", v))
}

// stopAll terminates every component and waits briefly for each.
func (s *Supervisor) stopAll(procs []*Component) {
	for _, p := range procs {
		s.Log.Debug("terminating component", zap.String("component", p.Name()))
		p.Terminate()
	}
	for _, p := range procs {
		if !p.Wait(s.StopTimeout) {
			s.Log.Warn("component did not stop in time",
				zap.String("component", p.Name()))
		}
	}
}

func componentDied(c *Component) error {
	if err := c.Err(); err != nil {
		return fmt.Errorf("component %s died: %w", c.Name(), err)
	}
	return fmt.Errorf("component %s died", c.Name())
}
