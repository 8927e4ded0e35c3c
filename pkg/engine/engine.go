// Package engine implements the top-level state machine that
// owns the active controller, the plan cache, and the UI handle, and
// coordinates transitions between manual and watch mode.
package engine

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/ccsync/ccsync/pkg/controller"
	"github.com/ccsync/ccsync/pkg/event"
	"github.com/ccsync/ccsync/pkg/logging"
	"github.com/ccsync/ccsync/pkg/planner"
	"github.com/ccsync/ccsync/pkg/state"
	"github.com/ccsync/ccsync/pkg/ui"
)

// State is one of the six engine states.
type State string

const (
	StateIdle     State = "IDLE"
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
	StateStopping State = "STOPPING"
	StateStopped  State = "STOPPED"
	StateError    State = "ERROR"
)

// runner is satisfied by *controller.Manual and *controller.Watch: both
// expose a blocking Run that the engine spawns as the controller's "run".
type runner interface {
	Run()
}

// Handle is returned by initManualMode/initWatchMode: the
// controller the caller configured, plus a start closure that transitions
// the engine to STARTING and spawns the controller.
type Handle struct {
	Controller runner
	start      func()
}

// Start transitions the engine to STARTING and runs the controller in the
// background.
func (h Handle) Start() { h.start() }

// Engine is the top-level coordinator. It exclusively owns
// the active controller, the plan cache, and the UI handle it was given;
// controllers exclusively own their file watcher and key handler.
type Engine struct {
	Planner *planner.Planner
	UI      ui.Sink
	Logger  *logging.Logger

	mu      sync.Mutex
	state   State
	runner  runner
	stopped chan struct{}

	// tracker lets external callers (the CLI's termination wait loop) block
	// until the next state transition instead of busy-polling State().
	tracker *state.Tracker
}

// New constructs an Engine in the IDLE state.
func New(p *planner.Planner, sink ui.Sink, logger *logging.Logger) *Engine {
	if sink == nil {
		sink = ui.Noop{}
	}
	return &Engine{
		Planner: p,
		UI:      sink,
		Logger:  logger,
		state:   StateIdle,
		tracker: state.NewTracker(),
	}
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	prev := e.state
	e.state = s
	e.mu.Unlock()
	e.tracker.NotifyOfChange()
	if e.Logger != nil {
		e.Logger.Debugf("engine: %s -> %s", prev, s)
	}
}

// WaitForStopped blocks until the engine reaches STOPPED, or ctx is
// cancelled first. It polls the engine's state tracker rather than the
// state itself, so it never busy-loops.
func (e *Engine) WaitForStopped(ctx context.Context) error {
	var index uint64
	for {
		if e.State() == StateStopped {
			return nil
		}
		var err error
		index, err = e.tracker.WaitForChange(ctx, index)
		if err != nil {
			if err == state.ErrTrackingTerminated {
				return nil
			}
			return err
		}
	}
}

// initMode implements the shared precondition/wiring logic behind
// initManualMode and initWatchMode: requires IDLE, subscribes
// to STARTED/STOPPED to drive engine state, and returns a Handle whose
// Start spawns the controller's run on its own goroutine.
func (e *Engine) initMode(build func(sink event.Sink) runner) (Handle, error) {
	e.mu.Lock()
	if e.state != StateIdle {
		current := e.state
		e.mu.Unlock()
		return Handle{}, errors.Errorf("initMode called while engine is %s, not IDLE", current)
	}
	e.mu.Unlock()

	e.stopped = make(chan struct{})

	sink := event.Func(func(evt event.Event) {
		switch evt.Kind {
		case event.KindStarted:
			e.setState(StateRunning)
		case event.KindStopped:
			// Final state transition is Stop()'s responsibility alone; this
			// only unblocks a Stop() call waiting on controller exit.
			select {
			case <-e.stopped:
			default:
				close(e.stopped)
			}
		case event.KindFatal:
			if e.Logger != nil {
				e.Logger.Error(evt.Err)
			}
			e.setState(StateError)
			go e.Stop()
		}
	})

	r := build(sink)

	e.mu.Lock()
	e.runner = r
	e.mu.Unlock()

	return Handle{
		Controller: r,
		start: func() {
			e.setState(StateStarting)
			go r.Run()
		},
	}, nil
}

// InitManualMode implements initManualMode.
func (e *Engine) InitManualMode(m *controller.Manual) (Handle, error) {
	return e.initMode(func(sink event.Sink) runner {
		m.Sink = sink
		m.Running = func() bool { return e.State() == StateRunning }
		m.RequestStop = func() { go e.Stop() }
		e.UI.SetMode(ui.ModeManual)
		return m
	})
}

// InitWatchMode implements initWatchMode.
func (e *Engine) InitWatchMode(w *controller.Watch) (Handle, error) {
	return e.initMode(func(sink event.Sink) runner {
		w.Sink = sink
		w.Running = func() bool { return e.State() == StateRunning }
		w.RequestStop = func() { go e.Stop() }
		e.UI.SetMode(ui.ModeWatch)
		return w
	})
}

// CreateSyncPlan safe to call in STARTING or
// RUNNING; any other state is a fatal programming-contract violation.
func (e *Engine) CreateSyncPlan(opts planner.Options) (planner.SyncPlan, error) {
	current := e.State()
	if current != StateStarting && current != StateRunning {
		return planner.SyncPlan{}, errors.Errorf("createSyncPlan called while engine is %s", current)
	}
	return e.Planner.CreatePlan(opts), nil
}

// InvalidateCache safe in any state, idempotent.
func (e *Engine) InvalidateCache(reason string) {
	e.Planner.InvalidateCache(reason)
}

// Stop idempotent, transitions via STOPPING to
// STOPPED, stops the UI (errors logged, not propagated), then the
// controller, then clears references.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state == StateStopped || e.state == StateIdle {
		e.mu.Unlock()
		return
	}
	wasError := e.state == StateError
	if !wasError {
		e.state = StateStopping
	}
	stopped := e.stopped
	e.mu.Unlock()

	if e.Logger != nil {
		e.Logger.Debugf("engine: stopping")
	}

	func() {
		defer func() {
			if r := recover(); r != nil && e.Logger != nil {
				e.Logger.Warn(errors.Errorf("panic stopping UI: %v", r))
			}
		}()
		e.UI.Stop()
	}()

	if stopped != nil {
		<-stopped
	}

	// Completing stop() is what moves ERROR to its terminal state.
	e.mu.Lock()
	e.state = StateStopped
	e.runner = nil
	e.mu.Unlock()
	e.tracker.NotifyOfChange()
	e.tracker.Terminate()
}
