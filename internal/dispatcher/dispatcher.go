// Package dispatcher implements the event dispatcher thread pool the host
// façade wires at init (§4.9): every lifecycle transition is handed off to a
// fixed-size worker pool so emission never happens on the caller's goroutine
// and never while the lifecycle engine holds a module or host lock (§4.6's
// "event dispatch must occur with all locks released").
package dispatcher

import (
	"log/slog"
	"sync"

	"github.com/iruldev/modhost/internal/domain/module"
)

// DefaultPoolSize is used when a non-positive size is supplied, matching
// the framework.event.thread.pool.size default.
const DefaultPoolSize = 4

type job struct {
	mod *module.Module
	ev  module.Event
}

// Dispatcher fans out module.Event values to module-scoped listeners (via
// the originating Module) and to host-scoped listeners registered with
// Subscribe, off a bounded worker pool.
type Dispatcher struct {
	logger *slog.Logger

	jobs    chan job
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex

	listenersMu sync.RWMutex
	listeners   []module.Listener
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Dispatcher with poolSize worker goroutines (non-positive
// falls back to DefaultPoolSize). Start must be called before Dispatch.
func New(poolSize int, opts ...Option) *Dispatcher {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	d := &Dispatcher{
		logger: slog.Default(),
		jobs:   make(chan job, poolSize*16),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.start(poolSize)
	return d
}

func (d *Dispatcher) start(poolSize int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	d.wg.Add(poolSize)
	for i := 0; i < poolSize; i++ {
		go d.worker()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatcher: listener panicked", "module_id", j.ev.ModuleID, "event", j.ev.Type, "recover", r)
		}
	}()
	if j.mod != nil {
		j.mod.Fire(j.ev)
	}
	for _, l := range d.hostListeners() {
		l(j.ev)
	}
}

func (d *Dispatcher) hostListeners() []module.Listener {
	d.listenersMu.RLock()
	defer d.listenersMu.RUnlock()
	out := make([]module.Listener, len(d.listeners))
	copy(out, d.listeners)
	return out
}

// Subscribe registers a host-scoped listener that receives every event
// regardless of which module fired it. The returned func removes it.
func (d *Dispatcher) Subscribe(l module.Listener) (unsubscribe func()) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	d.listeners = append(d.listeners, l)
	idx := len(d.listeners) - 1
	return func() {
		d.listenersMu.Lock()
		defer d.listenersMu.Unlock()
		// Overwrite the slot with a no-op instead of splicing it out, so
		// the indices captured by other unsubscribe funcs stay valid.
		if idx < len(d.listeners) {
			d.listeners[idx] = func(module.Event) {}
		}
	}
}

// Dispatch enqueues ev for asynchronous delivery to mod's module-scoped
// listeners and to every host-scoped listener. mod may be nil for events
// with no single owning module.
func (d *Dispatcher) Dispatch(mod *module.Module, ev module.Event) {
	d.jobs <- job{mod: mod, ev: ev}
}

// Stop drains queued jobs and joins every worker goroutine. Dispatch must
// not be called after Stop returns.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	d.mu.Unlock()

	close(d.jobs)
	d.wg.Wait()
}
