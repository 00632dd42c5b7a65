// Package supervisor drives the engine lifecycle.
//
// A Supervisor owns exactly one engine generation at a time and moves it
// through a fixed state machine:
//
//	Stopped -> Starting -> Running -> Stopping -> Stopped
//	                  \-> Failed (bind error or asynchronous engine fault)
//
// Start fails fast when a generation is already active; Stop and Restart
// wait for any in-flight transition instead. The transitional states
// (Starting, Stopping) only exist while the transition lock is held, so
// a caller that blocked on the lock always observes a settled state.
package supervisor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/marmos91/ftpkeeper/internal/logger"
	"github.com/marmos91/ftpkeeper/pkg/config"
	"github.com/marmos91/ftpkeeper/pkg/engine"
	"github.com/marmos91/ftpkeeper/pkg/metrics"
	"github.com/marmos91/ftpkeeper/pkg/users"
)

// State identifies where the supervisor is in the engine lifecycle.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Supervisor serializes lifecycle transitions over a single engine.
type Supervisor struct {
	eng engine.Engine

	// mu serializes transitions. state mirrors the current state for
	// lock-free reads; it is only written with mu held.
	mu    sync.Mutex
	state atomic.Int32

	// handle is the active engine generation, nil unless Running. Only
	// touched with mu held.
	handle engine.Handle

	errMu   sync.Mutex
	lastErr error

	metrics metrics.LifecycleMetrics
}

// New creates a supervisor over the given engine. The engine is required.
func New(eng engine.Engine) *Supervisor {
	if eng == nil {
		panic("supervisor: nil engine")
	}
	return &Supervisor{
		eng:     eng,
		metrics: metrics.NewLifecycleMetrics(),
	}
}

// State returns the current lifecycle state without blocking on any
// in-flight transition.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// LastError returns the error recorded by the most recent transition to
// Failed, or nil.
func (s *Supervisor) LastError() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

// Start brings up a new engine generation from the given settings and
// registry.
//
// Start is fail-fast: if a generation is already starting or running it
// returns ErrAlreadyActive immediately and changes nothing. From Stopped
// or Failed it binds, registers every account, and transitions to
// Running. A bind failure leaves the supervisor Failed and returns a
// *BindError.
func (s *Supervisor) Start(ctx context.Context, settings *config.Settings, registry *users.Registry) error {
	// Fast path: refuse without waiting for a transition in flight.
	switch State(s.state.Load()) {
	case StateStarting, StateRunning:
		return ErrAlreadyActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Recheck under the lock; another caller may have won the race.
	switch State(s.state.Load()) {
	case StateStarting, StateRunning:
		return ErrAlreadyActive
	}

	return s.startLocked(ctx, settings, registry)
}

// startLocked performs the Stopped/Failed -> Running transition. Caller
// holds mu.
func (s *Supervisor) startLocked(ctx context.Context, settings *config.Settings, registry *users.Registry) error {
	s.setState(StateStarting)

	spec := bindSpec(settings)
	logger.Info("Starting server on %s", spec.Addr())

	h, err := s.eng.Bind(ctx, spec)
	if err != nil {
		bindErr := &BindError{Addr: spec.Addr(), Err: err}
		s.metrics.BindFailure()
		s.fail(bindErr)
		return bindErr
	}

	for _, u := range registry.Users() {
		err := h.RegisterUser(engine.UserSpec{
			Username:    u.Username,
			Password:    u.Password,
			Permissions: u.Permissions,
			HomeDir:     registry.ResolveHome(u, settings.SharedDir),
		})
		if err != nil {
			// A half-started generation is torn down before failing so no
			// listener leaks.
			_ = h.Shutdown(ctx)
			s.fail(err)
			return err
		}
	}

	s.errMu.Lock()
	s.lastErr = nil
	s.errMu.Unlock()

	s.handle = h
	s.setState(StateRunning)
	go s.watchFatal(h)

	logger.Info("Server running with %d account(s)", registry.Len())
	return nil
}

// Stop shuts down the active engine generation.
//
// Stop blocks on any in-flight transition. It is idempotent: stopping a
// Stopped or Failed supervisor is a no-op.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

// stopLocked performs the Running -> Stopped transition. Caller holds mu.
func (s *Supervisor) stopLocked(ctx context.Context) error {
	switch State(s.state.Load()) {
	case StateStopped, StateFailed:
		// Failed generations have no live handle; a stop just settles the
		// state machine back to Stopped.
		s.handle = nil
		s.setState(StateStopped)
		return nil
	}

	s.setState(StateStopping)
	logger.Info("Stopping server")

	h := s.handle
	s.handle = nil

	var err error
	if h != nil {
		err = h.Shutdown(ctx)
	}

	s.setState(StateStopped)
	return err
}

// Restart stops the active generation and starts a fresh one from the
// given settings, as one atomic transition.
//
// From Stopped or Failed this degenerates to a plain start. If the stop
// half fails, Restart returns that error without starting; if the start
// half fails, the supervisor is left Failed.
func (s *Supervisor) Restart(ctx context.Context, settings *config.Settings, registry *users.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stopLocked(ctx); err != nil {
		return err
	}
	return s.startLocked(ctx, settings, registry)
}

// watchFatal waits for an asynchronous engine fault on this generation's
// fatal channel. A clean shutdown closes the channel without a value.
func (s *Supervisor) watchFatal(h engine.Handle) {
	err, ok := <-h.Fatal()
	if !ok || err == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A stale generation's fault is irrelevant: the supervisor already
	// moved on (stop or restart replaced the handle).
	if s.handle != h {
		return
	}

	logger.Error("Engine fault: %v", err)
	s.metrics.EngineFault()

	// Best effort: release whatever the dying generation still holds.
	_ = h.Shutdown(context.Background())

	s.handle = nil
	s.fail(&FatalError{Err: err})
}

// fail records err and transitions to Failed. Caller holds mu.
func (s *Supervisor) fail(err error) {
	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
	s.setState(StateFailed)
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
	s.metrics.SetState(int32(st))
}

// bindSpec projects the resolved settings onto the engine's bind
// contract.
func bindSpec(settings *config.Settings) engine.BindSpec {
	return engine.BindSpec{
		ListenAddress:       settings.ListenAddress,
		Port:                settings.Port,
		MaxConnections:      settings.MaxConnections,
		MaxConnectionsPerIP: settings.MaxConnectionsPerIP,
		ConnRate:            settings.ConnRate,
		PassivePorts:        settings.PassivePorts,
		Banner:              settings.Banner,
	}
}
