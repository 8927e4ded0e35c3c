package controller

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ccsync/ccsync/pkg/event"
	"github.com/ccsync/ccsync/pkg/logging"
	"github.com/ccsync/ccsync/pkg/planner"
	"github.com/ccsync/ccsync/pkg/syncop"
	"github.com/ccsync/ccsync/pkg/ui"
)

// DebounceInterval is how long the watch controller waits after the last
// observed change before running processPendingChanges. A var so tests can shrink it.
var DebounceInterval = 200 * time.Millisecond

// Watcher abstracts the underlying filesystem watch mechanism (OS events
// with a polling fallback, step 2). The CLI boundary wires a
// concrete implementation (fsnotify-backed, or a poller); the controller
// only needs the three callbacks and a way to add/remove watched paths.
type Watcher interface {
	// Add begins watching path.
	Add(path string) error
	// Remove stops watching path.
	Remove(path string) error
	// Close stops the watcher and releases all listeners.
	Close() error
	// Events delivers change notifications after write-stability
	// debouncing.
	Events() <-chan WatchEvent
	// Errors delivers fatal watcher errors.
	Errors() <-chan error
}

// WatchEvent is one filesystem notification.
type WatchEvent struct {
	Path string
	Op   WatchOp
}

// WatchOp classifies a WatchEvent.
type WatchOp int

const (
	WatchOpChange WatchOp = iota
	WatchOpRemove
)

// Watch the watch-mode controller, including its
// debounced two-buffer change coalescer. Every field it owns —
// pendingChanges, activeChanges, watchedFiles — is touched only from the
// cooperative single-threaded event loop described in; the mutex
// below exists purely so external accessors (tests, UI polling) can read a
// consistent snapshot, not because the loop itself needs synchronization.
type Watch struct {
	Planner    *planner.Planner
	Executor   syncop.Executor
	UI         ui.Sink
	Logger     *logging.Logger
	Sink       event.Sink
	Watcher    Watcher
	KeyHandler KeyHandler

	// ExpandFiles runs each rule's glob once and returns the concrete union
	// of matched files.
	ExpandFiles func() ([]string, error)

	Running     func() bool
	RequestStop func()

	mu                     sync.Mutex
	originalWatchedFiles   map[string]bool
	watchedFiles           map[string]bool
	pendingChanges         map[string]bool
	isInitialSync          bool
	onChangeSyncInProgress bool

	timerMu      sync.Mutex
	debounceTime *time.Timer

	scheduleCh chan struct{}
	stopCh     chan struct{}
}

// Run executes the watch controller's full lifecycle.
func (w *Watch) Run() {
	w.isInitialSync = true
	w.scheduleCh = make(chan struct{}, 1)
	w.stopCh = make(chan struct{})

	// fail reports a setup error as fatal and still emits STOPPED, so a
	// caller waiting for the controller to stop is released.
	fail := func(err error) {
		w.Sink.Emit(event.Event{Kind: event.KindFatal, Err: err})
		w.cleanup()
		w.Sink.Emit(event.Event{Kind: event.KindStopped})
	}

	files, err := w.ExpandFiles()
	if err != nil {
		fail(errors.Wrap(err, "unable to expand watch rules"))
		return
	}
	if len(files) == 0 {
		fail(errors.New("watch cannot start with 0 files"))
		return
	}

	w.mu.Lock()
	w.originalWatchedFiles = toSet(files)
	w.watchedFiles = toSet(files)
	w.pendingChanges = make(map[string]bool)
	w.mu.Unlock()

	for _, f := range files {
		if err := w.Watcher.Add(f); err != nil {
			fail(errors.Wrapf(err, "unable to watch %s", f))
			return
		}
	}

	w.Sink.Emit(event.Event{Kind: event.KindStarted})
	w.UI.SetMode(ui.ModeWatch)
	w.UI.Start()
	w.UI.Clear()

	// Initial sync covers the full rule set (changedFiles == nil).
	w.runCycle(nil)

	keysCh := w.startKeyForwarder()

	w.eventLoop(keysCh)

	w.cleanup()
	w.UI.Stop()
	w.Sink.Emit(event.Event{Kind: event.KindStopped})
}

// startKeyForwarder runs a single long-lived goroutine translating blocking
// KeyHandler.Next() calls into channel sends, so the cooperative event loop
// below can select over it without spawning a new goroutine per keypress.
// It exits once KeyHandler.Stop() causes Next() to return KeyStop.
func (w *Watch) startKeyForwarder() <-chan Key {
	if w.KeyHandler == nil {
		return nil
	}
	ch := make(chan Key)
	go func() {
		defer close(ch)
		for {
			key := w.KeyHandler.Next()
			if key == KeyStop {
				return
			}
			ch <- key
		}
	}()
	return ch
}

func (w *Watch) eventLoop(keysCh <-chan Key) {
	for w.Running() {
		select {
		case evt, ok := <-w.Watcher.Events():
			if !ok {
				return
			}
			w.onEvent(evt)
		case err, ok := <-w.Watcher.Errors():
			if !ok {
				return
			}
			w.Logger.Error(err)
			w.Sink.Emit(event.Event{Kind: event.KindFatal, Err: err})
			return
		case <-w.scheduleCh:
			w.processPendingChanges()
		case key, ok := <-keysCh:
			if !ok {
				keysCh = nil
				continue
			}
			if key == KeyEscape || key == KeyInterrupt {
				w.RequestStop()
			}
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watch) onEvent(evt WatchEvent) {
	if !w.Running() {
		return
	}

	w.Sink.Emit(event.Event{Kind: event.KindFileChanged, Path: evt.Path})

	if evt.Op == WatchOpRemove {
		w.mu.Lock()
		delete(w.watchedFiles, evt.Path)
		w.mu.Unlock()
		w.Planner.InvalidateCache("watched file removed: " + evt.Path)
		w.UI.AddMessage(ui.MessageWarning, "watched file was removed: "+evt.Path, "restart watch mode to refresh")
		w.UI.WriteMessages(ui.WriteOptions{ClearMessagesOnWrite: true})
		return
	}

	w.reportMissingWatchedFiles()

	w.mu.Lock()
	w.pendingChanges[evt.Path] = true
	inProgress := w.onChangeSyncInProgress
	w.mu.Unlock()

	// If a cycle is already in flight, the debounce timer is left alone:
	// processPendingChanges reschedules on its own once it finishes, per
	// its own non-empty-pendingChanges check below.
	if !inProgress {
		w.resetDebounceTimer()
	}
}

// reportMissingWatchedFiles compares originalWatchedFiles against
// watchedFiles and surfaces any divergence as a warning.
func (w *Watch) reportMissingWatchedFiles() {
	w.mu.Lock()
	var missing []string
	for f := range w.originalWatchedFiles {
		if !w.watchedFiles[f] {
			missing = append(missing, f)
		}
	}
	w.mu.Unlock()

	for _, f := range missing {
		w.UI.AddMessage(ui.MessageWarning, "previously watched file is no longer present: "+f, "")
	}
	if len(missing) > 0 {
		w.UI.WriteMessages(ui.WriteOptions{ClearMessagesOnWrite: true})
	}
}

func (w *Watch) resetDebounceTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.debounceTime != nil {
		w.debounceTime.Stop()
	}
	w.debounceTime = time.AfterFunc(DebounceInterval, w.scheduleNow)
}

func (w *Watch) scheduleNow() {
	select {
	case w.scheduleCh <- struct{}{}:
	default:
	}
}

// processPendingChanges implements atomic pending→active
// handoff. It never runs concurrently with itself: it is only ever invoked
// from the single cooperative event loop in eventLoop.
func (w *Watch) processPendingChanges() {
	w.mu.Lock()
	w.onChangeSyncInProgress = true
	active := w.pendingChanges
	w.pendingChanges = make(map[string]bool)
	w.mu.Unlock()

	w.runCycle(active)

	w.mu.Lock()
	w.onChangeSyncInProgress = false
	hasMore := len(w.pendingChanges) > 0
	w.mu.Unlock()

	if hasMore {
		w.resetDebounceTimer()
	}
}

// runCycle mirrors the manual controller's cycle but supports an optional
// changedFiles restriction and the initial/subsequent completion event
// split.
func (w *Watch) runCycle(changedFiles map[string]bool) {
	plan := w.Planner.CreatePlan(planner.Options{ChangedFiles: changedFiles})
	w.Sink.Emit(event.Event{Kind: event.KindSyncPlanned, Plan: &plan})
	reportIssues(plan, w.UI)

	if changedFiles != nil && len(changedFiles) > 0 && len(plan.ResolvedFileRules) == 0 {
		// Every change was out of scope for every rule; not an error.
		w.Logger.Warn(errors.New("changed files did not match any rule"))
	}

	var result syncop.Result
	if !plan.IsValid {
		result = syncop.Result{Status: syncop.StatusError}
	} else {
		result = syncop.PerformSync(plan, w.Executor, w.UI, w.Logger)
		if result.Status == syncop.StatusError || result.Status == syncop.StatusPartial {
			w.Planner.InvalidateCache("sync completed with errors")
		}
	}

	if w.isInitialSync {
		w.isInitialSync = false
		w.Sink.Emit(event.Event{Kind: event.KindInitialSyncComplete, Result: &result})
	} else {
		w.Sink.Emit(event.Event{Kind: event.KindSyncComplete, Result: &result})
	}
}

// cleanup implements "Cleanup on stop": close the watcher,
// clear the debounce timer, clear all three sets, stop the key handler.
func (w *Watch) cleanup() {
	if w.Watcher != nil {
		if err := w.Watcher.Close(); err != nil {
			w.Logger.Warn(err)
		}
	}

	w.timerMu.Lock()
	if w.debounceTime != nil {
		w.debounceTime.Stop()
		w.debounceTime = nil
	}
	w.timerMu.Unlock()

	w.mu.Lock()
	w.watchedFiles = nil
	w.originalWatchedFiles = nil
	w.pendingChanges = nil
	w.mu.Unlock()

	if w.KeyHandler != nil {
		w.KeyHandler.Stop()
	}
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		out[item] = true
	}
	return out
}
