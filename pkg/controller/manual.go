// Package controller implements the two sync-driving modes: the manual idle→sync→await-key loop, and the watch-mode file
// watcher with its debounced two-buffer change coalescer.
package controller

import (
	"github.com/ccsync/ccsync/pkg/event"
	"github.com/ccsync/ccsync/pkg/logging"
	"github.com/ccsync/ccsync/pkg/planner"
	"github.com/ccsync/ccsync/pkg/rules"
	"github.com/ccsync/ccsync/pkg/syncop"
	"github.com/ccsync/ccsync/pkg/ui"
)

// KeyHandler abstracts the raw-input loop the manual controller waits on
// between cycles. Implementations live at
// the CLI boundary; the core only needs to block for the next key.
type KeyHandler interface {
	// Next blocks until a key is pressed or the handler is stopped, in
	// which case it returns KeyStop.
	Next() Key
	// Stop releases the handler (restoring any prior raw-mode terminal
	// state) and causes any blocked Next call to return KeyStop.
	Stop()
}

// Key is one of the three keys the manual controller understands.
type Key int

const (
	KeyNext Key = iota
	KeyEscape
	KeyInterrupt
	KeyStop
)

// Manual idle → emit STARTED → clear UI → loop
// while the engine is RUNNING: perform one cycle, await a key, repeat.
type Manual struct {
	Planner    *planner.Planner
	Executor   syncop.Executor
	UI         ui.Sink
	Logger     *logging.Logger
	Sink       event.Sink
	KeyHandler KeyHandler

	// Running is polled by the loop each iteration; the engine flips it to
	// false to request a graceful stop is cooperative).
	Running func() bool
	// RequestStop is called when ESC or Ctrl-C is pressed.
	RequestStop func()
}

// Run executes the manual controller's full lifecycle. It returns when the
// engine transitions out of RUNNING or a fatal error occurs; fatal errors
// are reported via Sink.Emit(KindFatal) rather than returned, matching the
// "controllers catch fatal errors" propagation policy.
func (m *Manual) Run() {
	m.Sink.Emit(event.Event{Kind: event.KindStarted})
	m.UI.SetMode(ui.ModeManual)
	m.UI.Start()
	m.UI.Clear()

	for m.Running() {
		if !m.cycle() {
			break
		}

		m.UI.SetReady()
		key := m.KeyHandler.Next()
		if key != KeyNext {
			// Escape, interrupt and KeyStop (no further input) all end the
			// session, so the engine is asked to stop in every case.
			m.RequestStop()
			break
		}
	}

	m.KeyHandler.Stop()
	m.UI.Stop()
	m.Sink.Emit(event.Event{Kind: event.KindStopped})
}

// cycle implements "a sync cycle": create plan, display
// issues, and either report a planning failure or run performSync and
// report its result. Returns false on a fatal error (the loop should
// stop); a non-fatal (recoverable) error is logged and the loop continues.
func (m *Manual) cycle() bool {
	plan := m.Planner.CreatePlan(planner.Options{})
	m.Sink.Emit(event.Event{Kind: event.KindSyncPlanned, Plan: &plan})

	reportIssues(plan, m.UI)

	if !plan.IsValid {
		m.UI.AddMessage(ui.MessageError, "sync plan is invalid; see issues above", "")
		m.UI.WriteMessages(ui.WriteOptions{ClearMessagesOnWrite: true})
		result := syncop.Result{Status: syncop.StatusError}
		m.Sink.Emit(event.Event{Kind: event.KindSyncComplete, Result: &result})
		return true
	}

	result := syncop.PerformSync(plan, m.Executor, m.UI, m.Logger)
	if result.FatalError != nil {
		m.Sink.Emit(event.Event{Kind: event.KindFatal, Err: result.FatalError})
		return false
	}

	if result.Status == syncop.StatusError || result.Status == syncop.StatusPartial {
		m.Planner.InvalidateCache("sync completed with errors")
	}

	m.Sink.Emit(event.Event{Kind: event.KindSyncComplete, Result: &result})
	return true
}

func reportIssues(plan planner.SyncPlan, sink ui.Sink) {
	for _, issue := range plan.Issues {
		messageType := ui.MessageWarning
		if issue.Severity == rules.SeverityError {
			messageType = ui.MessageError
		}
		sink.AddMessage(messageType, issue.Message, issue.Suggestion)
	}
	sink.WriteMessages(ui.WriteOptions{ClearMessagesOnWrite: true})
}
