// Package platform provides the module handle / platform loader (§4.3):
// binding a manifest's library path to a loaded code unit and resolving its
// activator factory/destructor entry points.
//
// The default loader uses the standard library's plugin package, the
// idiomatic Go mechanism for loading shared objects at runtime; the spec
// explicitly treats platform-specific dynamic-loader bindings as external to
// the reusable core, so no third-party loader library is wired here (see
// DESIGN.md).
package platform

import (
	"fmt"
	"plugin"
	"sync"

	"github.com/iruldev/modhost/internal/domain/module"
)

// Symbol names every module library must export.
const (
	CreateActivatorSymbol  = "CreateModuleActivator"
	DestroyActivatorSymbol = "DestroyModuleActivator"
)

// LibraryLoadError reports a failure to open/load the library itself.
type LibraryLoadError struct {
	Path string
	Err  error
}

func (e *LibraryLoadError) Error() string {
	return fmt.Sprintf("platform: failed to load library %q: %v", e.Path, e.Err)
}
func (e *LibraryLoadError) Unwrap() error { return e.Err }

// MissingSymbolError reports a failure to resolve a required entry point.
type MissingSymbolError struct {
	Path   string
	Symbol string
	Err    error
}

func (e *MissingSymbolError) Error() string {
	return fmt.Sprintf("platform: library %q missing symbol %q: %v", e.Path, e.Symbol, e.Err)
}
func (e *MissingSymbolError) Unwrap() error { return e.Err }

// CreateActivatorFunc is the factory symbol a module library exports.
type CreateActivatorFunc func() module.Activator

// DestroyActivatorFunc is the matching destructor symbol.
type DestroyActivatorFunc func(module.Activator)

// Loader is the platform loader abstraction (§4.3): load acquires a library
// token and resolves both entry points atomically; unload releases it.
// Implementations backed by something other than the standard plugin
// package (e.g. a fake used in tests, or a future cgo-based loader for
// platforms without plugin support) only need to satisfy this interface.
type Loader interface {
	Load(path string) (Library, error)
}

// Library is a loaded module library: its two resolved entry points.
type Library interface {
	CreateActivator() (module.Activator, error)
	Unload() error
	Location() string
}

// pluginLoader is the default Loader, backed by the standard library's
// plugin package.
type pluginLoader struct{}

// NewLoader returns the default plugin-based Loader.
func NewLoader() Loader { return pluginLoader{} }

func (pluginLoader) Load(path string) (Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, &LibraryLoadError{Path: path, Err: err}
	}

	createSym, err := p.Lookup(CreateActivatorSymbol)
	if err != nil {
		return nil, &MissingSymbolError{Path: path, Symbol: CreateActivatorSymbol, Err: err}
	}
	create, ok := createSym.(func() module.Activator)
	if !ok {
		return nil, &MissingSymbolError{Path: path, Symbol: CreateActivatorSymbol, Err: fmt.Errorf("unexpected symbol signature")}
	}

	destroySym, err := p.Lookup(DestroyActivatorSymbol)
	if err != nil {
		return nil, &MissingSymbolError{Path: path, Symbol: DestroyActivatorSymbol, Err: err}
	}
	destroy, ok := destroySym.(func(module.Activator))
	if !ok {
		return nil, &MissingSymbolError{Path: path, Symbol: DestroyActivatorSymbol, Err: fmt.Errorf("unexpected symbol signature")}
	}

	return &pluginLibrary{path: path, create: create, destroy: destroy}, nil
}

type pluginLibrary struct {
	path    string
	create  CreateActivatorFunc
	destroy DestroyActivatorFunc

	mu        sync.Mutex
	activator module.Activator
}

func (l *pluginLibrary) CreateActivator() (module.Activator, error) {
	a := l.create()
	if a == nil {
		return nil, fmt.Errorf("platform: %s: %s returned nil activator", l.path, CreateActivatorSymbol)
	}
	l.mu.Lock()
	l.activator = a
	l.mu.Unlock()
	return a, nil
}

func (l *pluginLibrary) Unload() error {
	// Go's plugin package never unloads a library once opened; Unload is a
	// no-op to satisfy the Handle contract's drop-order invariant (activator
	// destroyed before "unload").
	return nil
}

func (l *pluginLibrary) Location() string { return l.path }

// handle adapts a Library into module.Handle, enforcing §4.3's destroy-
// before-unload drop order and never-throws destroy semantics.
type handle struct {
	lib Library

	mu      sync.Mutex
	destroy DestroyActivatorFunc
	current module.Activator
}

// NewHandle wraps lib's library load result into a module.Handle, capturing
// the destructor symbol up front so DestroyActivator never needs to
// re-resolve it.
func NewHandle(lib Library, destroy DestroyActivatorFunc) module.Handle {
	return &handle{lib: lib, destroy: destroy}
}

func (h *handle) CreateActivator() (module.Activator, error) {
	a, err := h.lib.CreateActivator()
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.current = a
	h.mu.Unlock()
	return a, nil
}

// DestroyActivator calls the matching destructor and never panics, per §4.3
// — a panicking destructor is recovered and reported as the returned error,
// not propagated as a panic.
func (h *handle) DestroyActivator(a module.Activator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("platform: activator destructor panicked: %v", r)
		}
	}()
	if h.destroy != nil {
		h.destroy(a)
	}
	h.mu.Lock()
	h.current = nil
	h.mu.Unlock()
	return nil
}

func (h *handle) Unload() error { return h.lib.Unload() }

func (h *handle) Location() string { return h.lib.Location() }

// Load is the convenience entry point §4.3 describes: acquire a library
// token via loader and wrap it as a module.Handle.
func Load(loader Loader, path string) (module.Handle, error) {
	lib, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	pl, ok := lib.(*pluginLibrary)
	if !ok {
		// Non-default loaders (fakes) are expected to also implement
		// destroy resolution internally; adapt them with a no-op destroy.
		return NewHandle(lib, func(module.Activator) {}), nil
	}
	return NewHandle(lib, pl.destroy), nil
}
