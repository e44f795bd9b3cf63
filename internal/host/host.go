// Package host implements the Host façade (§4.9): the single entry point
// that wires every subsystem (platform loader, event dispatcher, module
// registry, dependency resolver, reloader) and exposes module operations
// under its own lifecycle.
package host

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iruldev/modhost/internal/dispatcher"
	"github.com/iruldev/modhost/internal/domain/module"
	"github.com/iruldev/modhost/internal/hostconfig"
	"github.com/iruldev/modhost/internal/infra/resilience"
	"github.com/iruldev/modhost/internal/lifecycle"
	"github.com/iruldev/modhost/internal/platform"
	"github.com/iruldev/modhost/internal/registry"
	"github.com/iruldev/modhost/internal/reloader"
	"github.com/iruldev/modhost/internal/watcher"
)

// State is the host façade's own lifecycle, distinct from any single
// module's state.
type State int

const (
	Created State = iota
	Starting
	Active
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "CREATED"
	case Starting:
		return "STARTING"
	case Active:
		return "ACTIVE"
	case Stopping:
		return "STOPPING"
	case Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config holds the framework.* settings §4.9's init() consumes.
type Config struct {
	EventThreadPoolSize int
	ReloadPollInterval  time.Duration
	ModulesAutoReload   bool
	ModulesAutoStart    bool
	// Properties carries every framework.* key not already modeled above,
	// passed through to modules via their Context.GetProperty.
	Properties hostconfig.Properties
	// SecurityEnabled gates manifest permission enforcement (§4.6's
	// Install rejects a manifest declaring an unrecognised permission).
	SecurityEnabled bool
	// IPCEnabled gates construction of the IPC connection manager (§4.14).
	// When false, the host never dials a transport and ConnectionManager
	// returns nil.
	IPCEnabled bool
	// IPCDefaultTimeout bounds each endpoint's Send/Receive calls absent a
	// per-call deadline.
	IPCDefaultTimeout time.Duration
}

// Host is the module-host façade: CREATED -> STARTING -> ACTIVE ->
// STOPPING -> STOPPED.
type Host struct {
	cfg            Config
	logger         *slog.Logger
	loader         platform.Loader
	manifestLoader lifecycle.ManifestLoader

	mu    sync.Mutex
	state State

	reg      *registry.Registry
	engine   *lifecycle.Engine
	disp     *dispatcher.Dispatcher
	reloader *reloader.Reloader
	connMgr  resilience.ConnectionManager

	installMu sync.Mutex
	installOrd []uint64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithLoader overrides the default plugin-based platform loader, used by
// tests to inject a platform.FakeLoader.
func WithLoader(l platform.Loader) Option {
	return func(h *Host) { h.loader = l }
}

// WithManifestLoader supplies the manifest re-parser Update needs.
func WithManifestLoader(ml lifecycle.ManifestLoader) Option {
	return func(h *Host) { h.manifestLoader = ml }
}

// New constructs a Host in the CREATED state; call Init then Start.
func New(cfg Config, opts ...Option) *Host {
	h := &Host{
		cfg:    cfg,
		logger: slog.Default(),
		loader: platform.NewLoader(),
		state:  Created,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Init wires every subsystem (§4.9) and transitions CREATED -> ACTIVE. Init
// is not idempotent; call it exactly once.
func (h *Host) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Created {
		return fmt.Errorf("host: Init called in state %s, want CREATED", h.state)
	}
	h.state = Starting

	h.reg = registry.New()
	h.disp = dispatcher.New(h.cfg.EventThreadPoolSize, dispatcher.WithLogger(h.logger))
	h.engine = lifecycle.New(h.reg, h.loader, h.manifestLoader, h.disp,
		lifecycle.WithLogger(h.logger),
		lifecycle.WithAutoStart(h.cfg.ModulesAutoStart),
		lifecycle.WithProperties(h.cfg.Properties),
		lifecycle.WithSecurityEnabled(h.cfg.SecurityEnabled),
	)
	h.reloader = reloader.New(h, h.cfg.ModulesAutoReload, []reloader.Option{reloader.WithLogger(h.logger)},
		watcher.WithInterval(h.cfg.ReloadPollInterval),
	)
	h.reloader.Start()

	if h.cfg.IPCEnabled {
		timeout := h.cfg.IPCDefaultTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		h.connMgr = resilience.NewConnectionManager(timeout,
			resilience.WithConnManagerLogger(h.logger),
		)
		h.connMgr.Start()

		if epCfg, factory, ok := buildIPCEndpoint(h.cfg.Properties); ok {
			if err := h.connMgr.RegisterEndpoint(epCfg, factory); err != nil {
				h.logger.Error("failed to register default IPC endpoint", "broker", h.cfg.Properties.GetString("framework.ipc.broker", ""), "error", err)
			}
		}
	}

	h.state = Active
	return nil
}

// ConnectionManager returns the IPC connection manager (§4.14), or nil if
// framework.ipc.enabled is false. Init registers a "default" endpoint when
// framework.ipc.broker names a supported transport; callers register any
// further endpoints against it directly.
func (h *Host) ConnectionManager() resilience.ConnectionManager {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connMgr
}

// Start idempotently ensures the host is ACTIVE.
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == Active {
		return nil
	}
	if h.state != Starting && h.state != Created {
		return fmt.Errorf("host: Start called in state %s", h.state)
	}
	h.state = Active
	return nil
}

// State returns the host's own lifecycle state.
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Install installs a module from manifest, taking the host mutex (§4.6's
// concurrency note: install/update/uninstall are coarse-grained).
func (h *Host) Install(manifest *module.Manifest) (*module.Module, error) {
	h.installMu.Lock()
	defer h.installMu.Unlock()

	m, err := h.engine.Install(manifest)
	if err != nil {
		return nil, err
	}
	h.installOrd = append(h.installOrd, m.ID())

	if manifest.Library != "" {
		h.reloader.Register(m.ID(), manifest.Library, "", h.cfg.ModulesAutoReload)
	}
	return m, nil
}

// StartModule starts an installed module. Per §4.6, start/stop do not take
// the host mutex.
func (h *Host) StartModule(id uint64) error { return h.engine.Start(id) }

// StopModule stops an active module.
func (h *Host) StopModule(id uint64) error { return h.engine.Stop(id) }

// Update re-installs a module from a changed library/manifest path. This
// satisfies reloader.Host, and is also reachable directly for a manual
// reload request.
func (h *Host) Update(moduleID uint64, libraryPath string) error {
	manifestPath, _ := h.reloader.GetManifestPath(moduleID)
	return h.engine.Update(moduleID, libraryPath, manifestPath)
}

// Uninstall removes a module permanently.
func (h *Host) Uninstall(id uint64) error {
	h.installMu.Lock()
	defer h.installMu.Unlock()

	err := h.engine.Uninstall(id, h.reloader.Unregister)
	if err != nil {
		return err
	}
	for i, candidate := range h.installOrd {
		if candidate == id {
			h.installOrd = append(h.installOrd[:i], h.installOrd[i+1:]...)
			break
		}
	}
	return nil
}

// GetModule returns the module with the given id.
func (h *Host) GetModule(id uint64) (*module.Module, error) { return h.reg.Get(id) }

// GetModuleByName returns the highest-version module registered under name.
func (h *Host) GetModuleByName(name string) (*module.Module, error) { return h.reg.GetByName(name) }

// GetModules returns every registered module.
func (h *Host) GetModules() []*module.Module { return h.reg.GetAll() }

// Subscribe registers a host-scoped listener receiving every lifecycle
// event, for framework-level observers.
func (h *Host) Subscribe(l module.Listener) (unsubscribe func()) { return h.disp.Subscribe(l) }

// stopOrder returns the dependency-reverse stop order, falling back to the
// reverse of install order if the graph is unusable (§4.9).
func (h *Host) stopOrder() []uint64 {
	g := h.engine.Graph()
	if g != nil {
		if order := g.GetStopOrder(); len(order) > 0 {
			return order
		}
	}
	out := make([]uint64, len(h.installOrd))
	for i, id := range h.installOrd {
		out[len(h.installOrd)-1-i] = id
	}
	return out
}

// Stop implements §4.9's shutdown sequence: signal STOPPING, stop the
// reloader, stop every active module in dependency-reverse order, stop the
// dispatcher, transition STOPPED, and wake waitForStop waiters. The first
// error encountered is retained and returned after cleanup completes in
// full; no subsystem failure aborts the sequence early.
func (h *Host) Stop(timeout time.Duration) error {
	h.mu.Lock()
	if h.state == Stopped || h.state == Stopping {
		h.mu.Unlock()
		return nil
	}
	h.state = Stopping
	h.mu.Unlock()

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.reloader.Stop()
		for _, id := range h.stopOrder() {
			if err := h.engine.Stop(id); err != nil {
				record(err)
			}
		}
	}()

	if timeout > 0 {
		select {
		case <-done:
		case <-time.After(timeout):
			record(fmt.Errorf("host: stop timed out after %s", timeout))
		}
	} else {
		<-done
	}

	h.disp.Stop()

	h.mu.Lock()
	connMgr := h.connMgr
	h.mu.Unlock()
	if connMgr != nil {
		if err := connMgr.Stop(true, timeout); err != nil {
			record(err)
		}
	}

	h.mu.Lock()
	h.state = Stopped
	h.mu.Unlock()
	h.stopOnce.Do(func() { close(h.stopCh) })

	return firstErr
}

// WaitForStop blocks until Stop has completed.
func (h *Host) WaitForStop() { <-h.stopCh }
