// Package event defines the closed set of events controllers emit toward
// the engine and any observer: a typed message channel
// instead of a general-purpose emitter lattice, so there is no way to leak
// a listener across a shutdown and the concurrency invariants in
// stay checkable by inspection.
package event

import (
	"github.com/ccsync/ccsync/pkg/planner"
	"github.com/ccsync/ccsync/pkg/syncop"
)

// Kind identifies which variant an Event carries. The set is closed:
// callers switch exhaustively on Kind rather than type-asserting.
type Kind string

const (
	KindStarted              Kind = "started"
	KindStopped              Kind = "stopped"
	KindSyncPlanned          Kind = "sync_planned"
	KindSyncComplete         Kind = "sync_complete"
	KindInitialSyncComplete  Kind = "initial_sync_complete"
	KindFileChanged          Kind = "file_changed"
	KindFatal                Kind = "fatal"
)

// Event is a single emission from a controller. Only the fields relevant
// to Kind are populated; the rest are zero.
type Event struct {
	Kind Kind

	// Plan is populated for KindSyncPlanned.
	Plan *planner.SyncPlan
	// Result is populated for KindSyncComplete and KindInitialSyncComplete.
	Result *syncop.Result
	// Path is populated for KindFileChanged.
	Path string
	// Err is populated for KindFatal.
	Err error
}

// Sink receives Events. Controllers hold exactly one Sink; the engine is
// always the sole subscriber in this tool's wiring, which keeps fan-out
// trivial to reason about.
type Sink interface {
	Emit(Event)
}

// Func adapts a plain function to Sink.
type Func func(Event)

// Emit implements Sink.
func (f Func) Emit(e Event) { f(e) }

// Channel adapts a buffered channel to Sink, dropping events rather than
// blocking if the channel is full — a controller must never stall on a
// slow or absent observer.
type Channel chan Event

// Emit implements Sink. It never blocks.
func (c Channel) Emit(e Event) {
	select {
	case c <- e:
	default:
	}
}
