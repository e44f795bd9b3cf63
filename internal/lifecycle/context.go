package lifecycle

import (
	"sync"

	"github.com/iruldev/modhost/internal/domain/module"
	"github.com/iruldev/modhost/internal/hostconfig"
)

// serviceRegistration is one provided service, scoped to the context that
// registered it so Stop can tear it down without the module needing to
// track it itself.
type serviceRegistration struct {
	id        uint64
	interfce  string
	service   any
	moduleID  uint64
	listeners []func()
}

// moduleContext is the module.Context an Activator receives. It tracks the
// services it registered and the listeners it added so Stop (§4.6) can
// unregister/remove them without the activator's cooperation.
type moduleContext struct {
	moduleID   uint64
	services   *serviceTable
	properties hostconfig.Properties

	mu              sync.Mutex
	registeredIDs   []uint64
	removeListeners []func()
}

func newModuleContext(moduleID uint64, services *serviceTable, properties hostconfig.Properties) *moduleContext {
	return &moduleContext{moduleID: moduleID, services: services, properties: properties}
}

func (c *moduleContext) ModuleID() uint64 { return c.moduleID }

// GetProperty passes a framework.* property through to the module,
// satisfying §6's "unrecognised keys are preserved and passed through to
// modules" without the module reaching into a bare map itself.
func (c *moduleContext) GetProperty(key string) (string, bool) {
	v, ok := c.properties[key]
	return v, ok
}

// RegisterService publishes svc under iface, returning the registration id.
func (c *moduleContext) RegisterService(iface string, svc any) uint64 {
	id := c.services.register(iface, svc, c.moduleID)
	c.mu.Lock()
	c.registeredIDs = append(c.registeredIDs, id)
	c.mu.Unlock()
	return id
}

// AddListener registers a module-scoped listener and remembers it for
// removal when the context is torn down.
func (c *moduleContext) AddListener(m *module.Module, l module.Listener) {
	removed := false
	m.AddListener(func(ev module.Event) {
		c.mu.Lock()
		gone := removed
		c.mu.Unlock()
		if !gone {
			l(ev)
		}
	})
	c.mu.Lock()
	c.removeListeners = append(c.removeListeners, func() { removed = true })
	c.mu.Unlock()
}

// teardown unregisters every service this context published and removes
// every listener added through AddListener. module.Module exposes no
// RemoveListener, so each listener is registered behind a wrapper that
// teardown switches off; the inert wrapper stays in the module's slice.
func (c *moduleContext) teardown() {
	c.mu.Lock()
	ids := append([]uint64(nil), c.registeredIDs...)
	c.registeredIDs = nil
	for _, remove := range c.removeListeners {
		remove()
	}
	c.removeListeners = nil
	c.mu.Unlock()

	for _, id := range ids {
		c.services.unregister(id)
	}
}

// serviceTable is the minimal service registry backing RequiredServices /
// ProvidedServices (§4.2): services are published by interface name and
// looked up the same way, each entry remembering which module owns it.
type serviceTable struct {
	mu      sync.RWMutex
	nextID  uint64
	entries map[uint64]*serviceRegistration
	byIface map[string][]uint64
}

func newServiceTable() *serviceTable {
	return &serviceTable{
		entries: make(map[uint64]*serviceRegistration),
		byIface: make(map[string][]uint64),
	}
}

func (t *serviceTable) register(iface string, svc any, moduleID uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.entries[id] = &serviceRegistration{id: id, interfce: iface, service: svc, moduleID: moduleID}
	t.byIface[iface] = append(t.byIface[iface], id)
	return id
}

func (t *serviceTable) unregister(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	reg, ok := t.entries[id]
	if !ok {
		return
	}
	delete(t.entries, id)
	list := t.byIface[reg.interfce]
	for i, candidate := range list {
		if candidate == id {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(t.byIface, reg.interfce)
	} else {
		t.byIface[reg.interfce] = list
	}
}

// Lookup returns every service published under iface.
func (t *serviceTable) Lookup(iface string) []any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := t.byIface[iface]
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.entries[id].service)
	}
	return out
}
