package controller

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ccsync/ccsync/pkg/event"
	"github.com/ccsync/ccsync/pkg/executor"
	"github.com/ccsync/ccsync/pkg/planner"
	"github.com/ccsync/ccsync/pkg/rules"
	"github.com/ccsync/ccsync/pkg/ui"
)

// fakeWatcher is a test double for the Watcher interface, letting tests
// push synthetic WatchEvents/errors on demand instead of touching a real
// filesystem.
type fakeWatcher struct {
	events chan WatchEvent
	errs   chan error
	closed int32
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{
		events: make(chan WatchEvent, 16),
		errs:   make(chan error, 1),
	}
}

func (f *fakeWatcher) Add(string) error    { return nil }
func (f *fakeWatcher) Remove(string) error { return nil }
func (f *fakeWatcher) Close() error {
	atomic.StoreInt32(&f.closed, 1)
	return nil
}
func (f *fakeWatcher) Events() <-chan WatchEvent { return f.events }
func (f *fakeWatcher) Errors() <-chan error      { return f.errs }

// chanKeyHandler forwards whatever the test sends on ch; it returns KeyStop
// once ch is closed.
type chanKeyHandler struct {
	ch chan Key
}

func (h *chanKeyHandler) Next() Key {
	k, ok := <-h.ch
	if !ok {
		return KeyStop
	}
	return k
}

func (h *chanKeyHandler) Stop() {}

// syncedSink is a mutex-guarded event.Sink safe for concurrent use by the
// watch controller's goroutine and the test goroutine.
type syncedSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *syncedSink) Emit(e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *syncedSink) count(kind event.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func newTestPlanner(t *testing.T) *planner.Planner {
	t.Helper()
	sourceRoot := t.TempDir()
	mustWriteFile(t, sourceRoot+"/program.lua", "x")
	saveDir := newValidSave(t)
	return planner.New(planner.Config{
		SourceRoot:        sourceRoot,
		MinecraftSavePath: saveDir,
		Rules: []rules.SyncRule{
			{Source: "program.lua", Target: "program.lua", Computers: []string{"1"}},
		},
	}, nil, time.Minute)
}

func TestWatchZeroFilesIsFatal(t *testing.T) {
	sink := &syncedSink{}
	w := &Watch{
		Planner:     newTestPlanner(t),
		Executor:    executor.CopyToComputer,
		UI:          ui.Noop{},
		Sink:        sink,
		Watcher:     newFakeWatcher(),
		ExpandFiles: func() ([]string, error) { return nil, nil },
		Running:     func() bool { return true },
		RequestStop: func() {},
	}

	w.Run()

	if sink.count(event.KindFatal) != 1 {
		t.Fatalf("expected exactly one fatal event, got %d", sink.count(event.KindFatal))
	}
}

func TestWatchInitialSyncThenDebouncedChangeTriggersOneCycle(t *testing.T) {
	orig := DebounceInterval
	DebounceInterval = 10 * time.Millisecond
	defer func() { DebounceInterval = orig }()

	watcher := newFakeWatcher()
	sink := &syncedSink{}
	keys := &chanKeyHandler{ch: make(chan Key, 1)}

	var running int32 = 1
	w := &Watch{
		Planner:     newTestPlanner(t),
		Executor:    executor.CopyToComputer,
		UI:          ui.Noop{},
		Sink:        sink,
		Watcher:     watcher,
		KeyHandler:  keys,
		ExpandFiles: func() ([]string, error) { return []string{"program.lua"}, nil },
		Running:     func() bool { return atomic.LoadInt32(&running) == 1 },
		RequestStop: func() { atomic.StoreInt32(&running, 0) },
	}

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	waitUntil(t, time.Second, func() bool { return sink.count(event.KindInitialSyncComplete) == 1 })

	watcher.events <- WatchEvent{Path: "program.lua", Op: WatchOpChange}

	waitUntil(t, time.Second, func() bool { return sink.count(event.KindSyncComplete) == 1 })

	keys.ch <- KeyEscape
	close(keys.ch)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch controller did not stop after escape")
	}

	if sink.count(event.KindStopped) != 1 {
		t.Fatalf("expected one stopped event, got %d", sink.count(event.KindStopped))
	}
}

func TestWatchCoalescesChangesDuringActiveCycle(t *testing.T) {
	orig := DebounceInterval
	DebounceInterval = 10 * time.Millisecond
	defer func() { DebounceInterval = orig }()

	watcher := newFakeWatcher()
	sink := &syncedSink{}
	keys := &chanKeyHandler{ch: make(chan Key, 1)}

	var callCount int32
	block := make(chan struct{})
	exec := func(computerDir string, planned []rules.ResolvedFileRule) executor.Result {
		n := atomic.AddInt32(&callCount, 1)
		if n == 2 {
			<-block
		}
		return executor.Result{Status: executor.StatusOK}
	}

	sourceRoot := t.TempDir()
	for _, name := range []string{"a.lua", "b.lua", "c.lua"} {
		mustWriteFile(t, sourceRoot+"/"+name, "x")
	}
	changed := func(name string) string { return filepath.ToSlash(filepath.Join(sourceRoot, name)) }
	p := planner.New(planner.Config{
		SourceRoot:        sourceRoot,
		MinecraftSavePath: newValidSave(t),
		Rules: []rules.SyncRule{
			{Source: "*.lua", Target: "/", Computers: []string{"1"}},
		},
	}, nil, time.Minute)

	var running int32 = 1
	w := &Watch{
		Planner:     p,
		Executor:    exec,
		UI:          ui.Noop{},
		Sink:        sink,
		Watcher:     watcher,
		KeyHandler:  keys,
		ExpandFiles: func() ([]string, error) { return []string{"program.lua"}, nil },
		Running:     func() bool { return atomic.LoadInt32(&running) == 1 },
		RequestStop: func() { atomic.StoreInt32(&running, 0) },
	}

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	waitUntil(t, time.Second, func() bool { return atomic.LoadInt32(&callCount) == 1 })

	watcher.events <- WatchEvent{Path: changed("a.lua"), Op: WatchOpChange}
	waitUntil(t, time.Second, func() bool { return atomic.LoadInt32(&callCount) == 2 })

	watcher.events <- WatchEvent{Path: changed("b.lua"), Op: WatchOpChange}
	watcher.events <- WatchEvent{Path: changed("c.lua"), Op: WatchOpChange}

	time.Sleep(5 * DebounceInterval)
	if atomic.LoadInt32(&callCount) != 2 {
		t.Fatalf("expected no new cycle while one is in flight, got %d calls", callCount)
	}

	close(block)

	waitUntil(t, time.Second, func() bool { return atomic.LoadInt32(&callCount) == 3 })

	keys.ch <- KeyEscape
	close(keys.ch)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch controller did not stop after escape")
	}

	if atomic.LoadInt32(&callCount) != 3 {
		t.Fatalf("expected b.lua and c.lua to coalesce into exactly one follow-up cycle, got %d total calls", callCount)
	}
}

func TestWatchFileRemovalWarnsAndInvalidatesCache(t *testing.T) {
	watcher := newFakeWatcher()
	sink := &syncedSink{}
	keys := &chanKeyHandler{ch: make(chan Key, 1)}

	var running int32 = 1
	w := &Watch{
		Planner:     newTestPlanner(t),
		Executor:    executor.CopyToComputer,
		UI:          ui.Noop{},
		Sink:        sink,
		Watcher:     watcher,
		KeyHandler:  keys,
		ExpandFiles: func() ([]string, error) { return []string{"program.lua"}, nil },
		Running:     func() bool { return atomic.LoadInt32(&running) == 1 },
		RequestStop: func() { atomic.StoreInt32(&running, 0) },
	}

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	waitUntil(t, time.Second, func() bool { return sink.count(event.KindInitialSyncComplete) == 1 })

	watcher.events <- WatchEvent{Path: "program.lua", Op: WatchOpRemove}

	waitUntil(t, time.Second, func() bool { return sink.count(event.KindFileChanged) == 1 })

	keys.ch <- KeyEscape
	close(keys.ch)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch controller did not stop after escape")
	}
}
