// Package watchfs implements the controller.Watcher interface over two
// strategies: native OS filesystem events via fsnotify, and a plain
// polling fallback for filesystems where fsnotify is unsupported or
// unreliable. Both apply
// the same write-stability debounce before forwarding an event.
package watchfs

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ccsync/ccsync/pkg/ccsyncfs"
	"github.com/ccsync/ccsync/pkg/controller"
	"github.com/ccsync/ccsync/pkg/state"
)

// StabilityThreshold is how long a path's modification time must stay
// unchanged before a change is forwarded to the controller. A var so tests can
// shrink it.
var StabilityThreshold = 1000 * time.Millisecond

// PollInterval is how often the polling strategy re-stats watched files.
var PollInterval = 100 * time.Millisecond

// Notify wraps an *fsnotify.Watcher as a controller.Watcher, debouncing
// raw events against StabilityThreshold before forwarding them.
type Notify struct {
	watcher *fsnotify.Watcher
	events  chan controller.WatchEvent
	errors  chan error

	mu      sync.Mutex
	timers  map[string]*time.Timer
	removed map[string]bool
}

// NewNotify constructs an fsnotify-backed Watcher.
func NewNotify() (*Notify, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	n := &Notify{
		watcher: w,
		events:  make(chan controller.WatchEvent),
		errors:  make(chan error),
		timers:  make(map[string]*time.Timer),
		removed: make(map[string]bool),
	}
	go n.loop()
	return n, nil
}

func (n *Notify) loop() {
	for {
		select {
		case evt, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			n.handle(evt)
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			n.errors <- err
		}
	}
}

func (n *Notify) handle(evt fsnotify.Event) {
	path := ccsyncfs.ToSlash(evt.Name)

	if evt.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		n.mu.Lock()
		n.removed[path] = true
		if t, ok := n.timers[path]; ok {
			t.Stop()
			delete(n.timers, path)
		}
		n.mu.Unlock()
		n.events <- controller.WatchEvent{Path: path, Op: controller.WatchOpRemove}
		return
	}

	if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	n.mu.Lock()
	if t, ok := n.timers[path]; ok {
		t.Stop()
	}
	n.timers[path] = time.AfterFunc(StabilityThreshold, func() {
		n.mu.Lock()
		delete(n.timers, path)
		n.mu.Unlock()
		n.events <- controller.WatchEvent{Path: path, Op: controller.WatchOpChange}
	})
	n.mu.Unlock()
}

// Add implements controller.Watcher.
func (n *Notify) Add(path string) error {
	return n.watcher.Add(ccsyncfs.ToOSPath(path))
}

// Remove implements controller.Watcher.
func (n *Notify) Remove(path string) error {
	return n.watcher.Remove(ccsyncfs.ToOSPath(path))
}

// Close implements controller.Watcher.
func (n *Notify) Close() error {
	n.mu.Lock()
	for _, t := range n.timers {
		t.Stop()
	}
	n.mu.Unlock()
	return n.watcher.Close()
}

// Events implements controller.Watcher.
func (n *Notify) Events() <-chan controller.WatchEvent { return n.events }

// Errors implements controller.Watcher.
func (n *Notify) Errors() <-chan error { return n.errors }

// Poller is a polling-based Watcher for filesystems where fsnotify is
// unavailable or unreliable.
type Poller struct {
	events chan controller.WatchEvent
	errors chan error
	stop   chan struct{}
	closed state.Marker

	mu      sync.Mutex
	mtimes  map[string]time.Time
	stable  map[string]time.Time
	watched map[string]bool
}

// NewPoller constructs a polling Watcher that stats every watched path
// every PollInterval.
func NewPoller() *Poller {
	p := &Poller{
		events:  make(chan controller.WatchEvent),
		errors:  make(chan error),
		stop:    make(chan struct{}),
		mtimes:  make(map[string]time.Time),
		stable:  make(map[string]time.Time),
		watched: make(map[string]bool),
	}
	go p.loop()
	return p
}

func (p *Poller) loop() {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.scan()
		case <-p.stop:
			return
		}
	}
}

func (p *Poller) scan() {
	p.mu.Lock()
	paths := make([]string, 0, len(p.watched))
	for path := range p.watched {
		paths = append(paths, path)
	}
	p.mu.Unlock()

	now := time.Now()
	for _, path := range paths {
		info, err := os.Stat(ccsyncfs.ToOSPath(path))
		if err != nil {
			if os.IsNotExist(err) {
				p.mu.Lock()
				_, known := p.mtimes[path]
				delete(p.mtimes, path)
				delete(p.watched, path)
				p.mu.Unlock()
				if known {
					p.events <- controller.WatchEvent{Path: path, Op: controller.WatchOpRemove}
				}
			}
			continue
		}

		p.mu.Lock()
		last, seen := p.mtimes[path]
		p.mtimes[path] = info.ModTime()
		p.mu.Unlock()

		if seen && !info.ModTime().Equal(last) {
			p.mu.Lock()
			p.stable[path] = now
			p.mu.Unlock()
		}
	}

	p.mu.Lock()
	var ready []string
	for path, since := range p.stable {
		if now.Sub(since) >= StabilityThreshold {
			ready = append(ready, path)
			delete(p.stable, path)
		}
	}
	p.mu.Unlock()

	for _, path := range ready {
		p.events <- controller.WatchEvent{Path: path, Op: controller.WatchOpChange}
	}
}

// Add implements controller.Watcher.
func (p *Poller) Add(path string) error {
	info, err := os.Stat(ccsyncfs.ToOSPath(path))
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.watched[path] = true
	p.mtimes[path] = info.ModTime()
	p.mu.Unlock()
	return nil
}

// Remove implements controller.Watcher.
func (p *Poller) Remove(path string) error {
	p.mu.Lock()
	delete(p.watched, path)
	delete(p.mtimes, path)
	delete(p.stable, path)
	p.mu.Unlock()
	return nil
}

// Close implements controller.Watcher. It is idempotent: a second call is a
// no-op rather than a panic on a closed channel.
func (p *Poller) Close() error {
	if p.closed.Marked() {
		return nil
	}
	p.closed.Mark()
	close(p.stop)
	return nil
}

// Events implements controller.Watcher.
func (p *Poller) Events() <-chan controller.WatchEvent { return p.events }

// Errors implements controller.Watcher.
func (p *Poller) Errors() <-chan error { return p.errors }
