// Package lifecycle implements the module lifecycle engine (§4.6): the
// install/start/stop/update/uninstall state machine that drives every
// Module between INSTALLED and UNINSTALLED.
package lifecycle

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/iruldev/modhost/internal/dispatcher"
	"github.com/iruldev/modhost/internal/domain/auth"
	"github.com/iruldev/modhost/internal/domain/module"
	"github.com/iruldev/modhost/internal/hostconfig"
	"github.com/iruldev/modhost/internal/platform"
	"github.com/iruldev/modhost/internal/registry"
	"github.com/iruldev/modhost/internal/resolver"
)

// ManifestLoader re-parses a manifest from its on-disk location, used by
// Update to pick up an edited declaration (§4.2 leaves the format
// unspecified; the concrete loader lives outside this package).
type ManifestLoader interface {
	Load(path string) (*module.Manifest, error)
}

// Engine drives every module through §4.6's state machine. It owns the
// dependency graph (rebuilt after every topology-changing operation) and
// hands every transition's event to the dispatcher with no lock held.
type Engine struct {
	reg        *registry.Registry
	loader     platform.Loader
	manifests  ManifestLoader
	dispatcher *dispatcher.Dispatcher
	services   *serviceTable
	logger     *slog.Logger
	properties hostconfig.Properties

	graphMu sync.RWMutex
	graph   *resolver.DependencyGraph

	autoStart       bool // framework.modules.auto.start
	securityEnabled bool // framework.security.enabled
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithAutoStart sets the host-level framework.modules.auto.start flag.
func WithAutoStart(enabled bool) Option {
	return func(e *Engine) { e.autoStart = enabled }
}

// WithProperties sets the framework.* passthrough properties every module
// context exposes via GetProperty.
func WithProperties(p hostconfig.Properties) Option {
	return func(e *Engine) { e.properties = p }
}

// WithSecurityEnabled toggles manifest permission enforcement
// (framework.security.enabled): when true, Install rejects any manifest
// declaring a permission auth.Permission.IsValid reports unrecognised.
func WithSecurityEnabled(enabled bool) Option {
	return func(e *Engine) { e.securityEnabled = enabled }
}

// New constructs an Engine bound to reg, loader and d. manifests may be nil
// if Update is never exercised against on-disk manifests.
func New(reg *registry.Registry, loader platform.Loader, manifests ManifestLoader, d *dispatcher.Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		reg:        reg,
		loader:     loader,
		manifests:  manifests,
		dispatcher: d,
		services:   newServiceTable(),
		logger:     slog.Default(),
		graph:      resolver.NewEmptyGraph(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Services exposes the shared service table so the host façade can offer
// lookups (ProvidedServices/RequiredServices, §4.2).
func (e *Engine) Services() *serviceTable { return e.services }

func (e *Engine) rebuildGraph() error {
	g, err := resolver.BuildGraph(e.reg)
	if err != nil {
		return err
	}
	e.graphMu.Lock()
	e.graph = g
	e.graphMu.Unlock()
	return nil
}

// Graph returns a snapshot of the current dependency graph, used by the
// host façade to compute a dependency-reverse stop order.
func (e *Engine) Graph() *resolver.DependencyGraph {
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()
	return e.graph
}

func (e *Engine) fire(m *module.Module, typ module.EventType, err error) {
	e.dispatcher.Dispatch(m, module.Event{Type: typ, ModuleID: m.ID(), Name: m.Manifest().SymbolicName, Err: err})
}

// Install implements §4.6's install coordinator: construct the handle,
// assign an id, validate the candidate against the graph (rejecting
// cycles), register, rebuild the graph, attempt resolution, and optionally
// auto-start. Any failure after registration is rolled back.
func (e *Engine) Install(manifest *module.Manifest) (*module.Module, error) {
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	if e.securityEnabled {
		if err := validatePermissions(manifest.Permissions); err != nil {
			return nil, err
		}
	}

	var handle module.Handle
	var err error
	if manifest.Library != "" {
		handle, err = platform.Load(e.loader, manifest.Library)
		if err != nil {
			return nil, err
		}
	}

	id := e.reg.NextID()
	m := module.New(id, manifest, handle)

	depIDs, err := e.candidateDependencyIDs(manifest)
	if err != nil {
		return nil, err
	}

	if err := e.Graph().Validate(id, depIDs); err != nil {
		return nil, err
	}

	if err := e.reg.Register(m); err != nil {
		return nil, err
	}

	if err := e.rebuildGraph(); err != nil {
		_ = e.reg.Unregister(id)
		return nil, err
	}

	e.fire(m, module.EventInstalled, nil)
	e.resolve(m)

	if e.autoStart && manifest.AutoStart && m.State() == module.Resolved {
		if err := e.Start(id); err != nil {
			e.logger.Warn("auto-start failed", "module_id", id, "error", err)
		}
	}

	return m, nil
}

// validatePermissions rejects any permission string a manifest declares
// that the host's permission model (internal/domain/auth) doesn't
// recognise, enforced only when framework.security.enabled is set.
func validatePermissions(perms []string) error {
	for _, p := range perms {
		if !auth.Permission(p).IsValid() {
			return fmt.Errorf("%w: %q", module.ErrUnknownPermission, p)
		}
	}
	return nil
}

// candidateDependencyIDs resolves a not-yet-registered manifest's
// non-optional dependencies against the registry, for graph validation.
func (e *Engine) candidateDependencyIDs(manifest *module.Manifest) ([]uint64, error) {
	var ids []uint64
	for _, dep := range manifest.NonOptionalDependencies() {
		target, err := e.reg.FindCompatible(dep.Name, dep.Range)
		if err != nil {
			continue
		}
		ids = append(ids, target.ID())
	}
	return ids, nil
}

// resolve implements §4.6's resolution rule: RESOLVED if every non-optional
// dependency is satisfiable, else left INSTALLED with the gap logged.
func (e *Engine) resolve(m *module.Module) {
	manifest := m.Manifest()
	var missing []string
	for _, dep := range manifest.NonOptionalDependencies() {
		if _, err := e.reg.FindCompatible(dep.Name, dep.Range); err != nil {
			missing = append(missing, dep.Name)
		}
	}
	if len(missing) > 0 {
		e.logger.Info("module left installed: unsatisfied dependencies", "module_id", m.ID(), "missing", missing)
		e.fire(m, module.EventResolvedFailed, fmt.Errorf("unsatisfied dependencies: %v", missing))
		return
	}
	m.Transition(module.Resolved, nil, nil)
	e.fire(m, module.EventResolved, nil)
}

// Start implements §4.6's start operation.
func (e *Engine) Start(id uint64) error {
	m, err := e.reg.Get(id)
	if err != nil {
		return err
	}
	if m.State() != module.Resolved {
		return module.ErrInvalidTransition
	}

	activator, err := m.Handle().CreateActivator()
	if err != nil {
		return err
	}
	ctx := newModuleContext(id, e.services, e.properties)
	m.Transition(module.Starting, activator, ctx)
	e.fire(m, module.EventStarting, nil)

	if err := e.safeActivatorStart(activator, ctx); err != nil {
		ctx.teardown()
		_ = m.Handle().DestroyActivator(activator)
		m.Transition(module.Resolved, nil, nil)
		e.fire(m, module.EventResolvedFailed, err)
		return err
	}

	m.Transition(module.Active, activator, ctx)
	e.fire(m, module.EventStarted, nil)
	return nil
}

func (e *Engine) safeActivatorStart(a module.Activator, ctx module.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lifecycle: activator.start panicked: %v", r)
		}
	}()
	return a.Start(ctx)
}

func (e *Engine) safeActivatorStop(a module.Activator, ctx module.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lifecycle: activator.stop panicked: %v", r)
		}
	}()
	return a.Stop(ctx)
}

// Stop implements §4.6's stop operation: a no-op outside ACTIVE.
func (e *Engine) Stop(id uint64) error {
	m, err := e.reg.Get(id)
	if err != nil {
		return err
	}
	if m.State() != module.Active {
		return nil
	}

	activator := m.Activator()
	ctx := m.Context()
	m.Transition(module.Stopping, activator, ctx)
	e.fire(m, module.EventStopping, nil)

	if err := e.safeActivatorStop(activator, ctx); err != nil {
		e.logger.Error("activator.stop failed", "module_id", id, "error", err)
	}

	if mc, ok := ctx.(*moduleContext); ok {
		mc.teardown()
	}
	_ = m.Handle().DestroyActivator(activator)

	m.Transition(module.Resolved, nil, nil)
	e.fire(m, module.EventStopped, nil)
	return nil
}

// Update implements §4.6's update operation: stop if active, swap the
// handle if the library path changed, re-parse the manifest, rebuild and
// re-resolve, restarting if the module was previously active.
func (e *Engine) Update(id uint64, libraryPath, manifestPath string) error {
	m, err := e.reg.Get(id)
	if err != nil {
		return err
	}

	wasActive := m.State() == module.Active
	if wasActive {
		if err := e.Stop(id); err != nil {
			return err
		}
	}

	oldManifest := m.Manifest()
	if libraryPath != "" && libraryPath != oldManifest.Library {
		if err := m.Handle().Unload(); err != nil {
			e.logger.Warn("failed to unload previous library", "module_id", id, "error", err)
		}
		newHandle, err := platform.Load(e.loader, libraryPath)
		if err != nil {
			return err
		}
		m.SetHandle(newHandle)
	}

	if manifestPath != "" && e.manifests != nil {
		newManifest, err := e.manifests.Load(manifestPath)
		if err != nil {
			return err
		}
		if err := newManifest.Validate(); err != nil {
			return err
		}
		m.SetManifest(newManifest)
	}

	if err := e.rebuildGraph(); err != nil {
		return err
	}

	m.Transition(module.Installed, nil, nil)
	e.resolve(m)

	if wasActive && m.State() == module.Resolved {
		if err := e.Start(id); err != nil {
			e.logger.Warn("restart after update failed", "module_id", id, "error", err)
		}
	}

	e.fire(m, module.EventUpdated, nil)
	return nil
}

// Uninstall implements §4.6's uninstall operation. unregisterReloader, when
// non-nil, is invoked with id before the registry entry is dropped so the
// reloader's watch set stays in sync.
func (e *Engine) Uninstall(id uint64, unregisterReloader func(uint64)) error {
	m, err := e.reg.Get(id)
	if err != nil {
		return err
	}
	if m.State() == module.Active {
		if err := e.Stop(id); err != nil {
			return err
		}
	}

	if unregisterReloader != nil {
		unregisterReloader(id)
	}

	if err := e.reg.Unregister(id); err != nil {
		return err
	}
	if err := e.rebuildGraph(); err != nil {
		return err
	}

	m.Transition(module.Uninstalled, nil, nil)
	e.fire(m, module.EventUninstalled, nil)
	return nil
}
