// Package watcher implements the poll-based file watcher (§4.7): a fixed
// interval scan of watched paths that emits CREATED/MODIFIED/DELETED
// transitions based on (mtime, size, exists).
package watcher

import (
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"
)

// EventType is the kind of filesystem transition observed on a tick.
type EventType int

const (
	Created EventType = iota
	Modified
	Deleted
)

func (e EventType) String() string {
	switch e {
	case Created:
		return "CREATED"
	case Modified:
		return "MODIFIED"
	case Deleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// Event reports one watched-path transition.
type Event struct {
	Path string
	Type EventType
}

// Callback receives watcher events. Per §4.7, callbacks run on the watcher's
// own goroutine and must not re-enter the watcher (e.g. call Add/Remove/Stop
// synchronously from within the callback).
type Callback func(Event)

type pathState struct {
	lastMtime time.Time
	lastSize  int64
	exists    bool
}

// Watcher polls a fixed interval over a set of watched paths.
type Watcher struct {
	interval time.Duration
	callback Callback
	logger   *slog.Logger

	mu     sync.Mutex
	paths  map[string]*pathState
	stopCh chan struct{}
	doneCh chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval overrides the default 1000ms poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// DefaultInterval is §4.7's default poll interval.
const DefaultInterval = 1000 * time.Millisecond

// New creates a Watcher that invokes cb for every transition.
func New(cb Callback, opts ...Option) *Watcher {
	w := &Watcher{
		interval: DefaultInterval,
		callback: cb,
		logger:   slog.Default(),
		paths:    make(map[string]*pathState),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add registers path for watching, seeding its initial state without
// emitting an event (the path is assumed to already exist in its current
// form; the first tick after Add only reports subsequent changes).
func (w *Watcher) Add(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths[path] = w.statLocked(path)
}

// Remove stops watching path.
func (w *Watcher) Remove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.paths, path)
}

func (w *Watcher) statLocked(path string) *pathState {
	info, err := os.Stat(path)
	if err != nil {
		return &pathState{exists: false}
	}
	return &pathState{exists: true, lastMtime: info.ModTime(), lastSize: info.Size()}
}

// Start launches the watcher's polling goroutine. Stop must be called to
// join it.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.stopCh != nil {
		w.mu.Unlock()
		return
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.loop(stopCh, doneCh)
}

func (w *Watcher) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

// tick implements §4.7's per-tick transition rules for every watched path,
// in deterministic path order.
func (w *Watcher) tick() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.paths))
	for p := range w.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	type change struct {
		path string
		typ  EventType
	}
	var changes []change

	for _, p := range paths {
		prev := w.paths[p]
		if prev == nil {
			continue
		}
		next := w.statLocked(p)

		switch {
		case prev.exists && !next.exists:
			changes = append(changes, change{p, Deleted})
		case !prev.exists && next.exists:
			changes = append(changes, change{p, Created})
		case prev.exists && next.exists && (!prev.lastMtime.Equal(next.lastMtime) || prev.lastSize != next.lastSize):
			changes = append(changes, change{p, Modified})
		}
		w.paths[p] = next
	}
	w.mu.Unlock()

	for _, c := range changes {
		w.safeCallback(Event{Path: c.path, Type: c.typ})
	}
}

func (w *Watcher) safeCallback(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("watcher callback panicked", "path", ev.Path, "event", ev.Type, "recover", r)
		}
	}()
	w.callback(ev)
}

// Stop signals the polling goroutine and joins it.
func (w *Watcher) Stop() {
	w.mu.Lock()
	stopCh, doneCh := w.stopCh, w.doneCh
	w.stopCh, w.doneCh = nil, nil
	w.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}
