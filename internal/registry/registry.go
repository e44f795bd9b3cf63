// Package registry provides the in-memory, indexed store of installed
// modules: by numeric id, and by symbolic name with version-range lookup.
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/iruldev/modhost/internal/domain/module"
	"github.com/iruldev/modhost/internal/domain/version"
)

// Registry indexes installed modules by id and by symbolic name. Every
// module appears in both indices; the by-name lists are kept sorted by
// version descending. All operations are serialized by a reader/writer
// lock; reads proceed concurrently with each other.
type Registry struct {
	mu     sync.RWMutex
	byID   map[uint64]*module.Module
	byName map[string][]*module.Module

	nextID atomic.Uint64
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		byID:   make(map[uint64]*module.Module),
		byName: make(map[string][]*module.Module),
	}
}

// NextID returns a strictly increasing id, unique for the lifetime of this
// Registry. Ids are never reused, even across Unregister calls.
func (r *Registry) NextID() uint64 {
	return r.nextID.Add(1)
}

// Register inserts m into both indices atomically. Returns
// module.ErrAlreadyRegistered if m's id is already present.
func (r *Registry) Register(m *module.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID()]; exists {
		return module.ErrAlreadyRegistered
	}

	r.byID[m.ID()] = m

	name := m.Manifest().SymbolicName
	list := append(r.byName[name], m)
	sort.Slice(list, func(i, j int) bool {
		return list[i].Manifest().Version.GreaterThan(list[j].Manifest().Version)
	})
	r.byName[name] = list

	return nil
}

// Unregister removes the module with the given id from both indices.
// Returns module.ErrNotFound if no such module is registered.
func (r *Registry) Unregister(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return module.ErrNotFound
	}
	delete(r.byID, id)

	name := m.Manifest().SymbolicName
	list := r.byName[name]
	for i, candidate := range list {
		if candidate.ID() == id {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.byName, name)
	} else {
		r.byName[name] = list
	}

	return nil
}

// Get returns the module with the given id.
func (r *Registry) Get(id uint64) (*module.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return nil, module.ErrNotFound
	}
	return m, nil
}

// GetByName returns the highest-version module registered under name.
func (r *Registry) GetByName(name string) (*module.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byName[name]
	if len(list) == 0 {
		return nil, module.ErrNotFound
	}
	return list[0], nil
}

// GetByNameVersion returns the module with an exact (name, version) match.
func (r *Registry) GetByNameVersion(name string, v version.Version) (*module.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.byName[name] {
		if m.Manifest().Version.Equal(v) {
			return m, nil
		}
	}
	return nil, module.ErrNotFound
}

// GetAll returns a snapshot of every registered module, in no particular
// order.
func (r *Registry) GetAll() []*module.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*module.Module, 0, len(r.byID))
	for _, m := range r.byID {
		out = append(out, m)
	}
	return out
}

// FindCompatible returns the highest-version module named name whose
// version satisfies rng. Ties (equal versions across distinct ids cannot
// happen given the registry invariant, but a tie on the predicate itself
// resolves to the first match in descending-version order, which is
// already the highest qualifying version).
func (r *Registry) FindCompatible(name string, rng version.Range) (*module.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.byName[name] {
		if rng.Includes(m.Manifest().Version) {
			return m, nil
		}
	}
	return nil, module.ErrNotFound
}
