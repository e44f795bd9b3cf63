package module

import "sync"

// Activator is implemented by module code. Start is invoked once the module
// reaches Starting with a Context scoped to this module; Stop is invoked
// once the module is asked to stop. Activators never panic across this
// boundary in well-behaved modules, but the lifecycle engine treats a panic
// the same as a returned error.
type Activator interface {
	Start(ctx Context) error
	Stop(ctx Context) error
}

// Context is the module-scoped view of the host that an Activator receives.
// The lifecycle engine supplies the concrete implementation; Module only
// needs the interface to hold a reference and to know when to tear it down.
type Context interface {
	ModuleID() uint64

	// GetProperty returns a framework.* property value passed through from
	// the host's configuration, and whether it was set.
	GetProperty(key string) (string, bool)
}

// Handle owns the loaded library backing a module and knows how to create
// and destroy activator instances through it. The concrete implementation
// (platform loader) lives outside this package; Module only depends on the
// interface so the domain layer stays free of loader mechanics.
type Handle interface {
	CreateActivator() (Activator, error)
	DestroyActivator(Activator) error
	Unload() error
	Location() string
}

// Listener receives lifecycle events for a single module.
type Listener func(Event)

// Module is a dynamically loaded unit identified by (symbolic_name,
// version) with its own lifecycle. Its id is assigned once at install and
// never reused.
type Module struct {
	mu sync.RWMutex

	id       uint64
	manifest *Manifest
	state    State

	handle    Handle
	activator Activator
	context   Context

	listeners []Listener
}

// New constructs a Module in the Installed state. id must come from the
// registry's strictly-increasing generator.
func New(id uint64, manifest *Manifest, handle Handle) *Module {
	return &Module{
		id:       id,
		manifest: manifest,
		state:    Installed,
		handle:   handle,
	}
}

// ID returns the module's unique, never-reused identifier.
func (m *Module) ID() uint64 { return m.id }

// Manifest returns the module's parsed manifest.
func (m *Module) Manifest() *Manifest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.manifest
}

// SetManifest replaces the manifest, used by update() after a reload
// re-parses the on-disk declaration.
func (m *Module) SetManifest(manifest *Manifest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifest = manifest
}

// State returns the current lifecycle state.
func (m *Module) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Handle returns the module's loaded-library handle.
func (m *Module) Handle() Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle
}

// SetHandle replaces the handle, used by update() when the module's
// location changes and the old library must be unloaded in favor of a new
// one.
func (m *Module) SetHandle(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handle = h
}

// Activator returns the live activator instance, non-nil only while the
// module is Starting, Active, or Stopping.
func (m *Module) Activator() Activator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activator
}

// Context returns the live module context, non-nil only while the module
// is Starting, Active, or Stopping.
func (m *Module) Context() Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.context
}

// Transition sets the module's state and, for the Starting/Active/Stopping
// states, its activator and context; for any other state both are cleared.
// Callers (the lifecycle engine) are responsible for enforcing which
// transitions are legal and for invoking activator callbacks outside this
// lock.
func (m *Module) Transition(next State, activator Activator, ctx Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = next
	switch next {
	case Starting, Active, Stopping:
		m.activator = activator
		m.context = ctx
	default:
		m.activator = nil
		m.context = nil
	}
}

// AddListener registers a module-scoped lifecycle listener.
func (m *Module) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Listeners returns a snapshot of the registered module-scoped listeners.
// The snapshot is taken under lock but the returned slice is safe to range
// over without holding it, so callers can fire events without re-entrant
// locking.
func (m *Module) Listeners() []Listener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Listener, len(m.listeners))
	copy(out, m.listeners)
	return out
}

// Fire invokes every module-scoped listener with ev. Listener panics are not
// recovered here; the event dispatcher, which delivers events through this
// call, recovers them.
func (m *Module) Fire(ev Event) {
	for _, l := range m.Listeners() {
		l(ev)
	}
}
