package platform

import (
	"fmt"
	"sync"

	"github.com/iruldev/modhost/internal/domain/module"
)

// FakeLoader is an in-memory Loader for tests: libraries are registered by
// path instead of resolved from disk, with no cgo/plugin dependency.
type FakeLoader struct {
	mu    sync.Mutex
	specs map[string]FakeLibrarySpec
}

// FakeLibrarySpec describes a registered fake library.
type FakeLibrarySpec struct {
	// NewActivator constructs a fresh activator instance for each
	// CreateActivator call; return nil to simulate §4.3's "returning null
	// is an error".
	NewActivator func() module.Activator
	// LoadErr, if set, makes Load fail as if the library couldn't open.
	LoadErr error
}

// NewFakeLoader returns an empty FakeLoader.
func NewFakeLoader() *FakeLoader {
	return &FakeLoader{specs: make(map[string]FakeLibrarySpec)}
}

// Register associates path with spec so a later Load(path) resolves it.
func (f *FakeLoader) Register(path string, spec FakeLibrarySpec) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs[path] = spec
}

func (f *FakeLoader) Load(path string) (Library, error) {
	f.mu.Lock()
	spec, ok := f.specs[path]
	f.mu.Unlock()

	if !ok {
		return nil, &LibraryLoadError{Path: path, Err: fmt.Errorf("no fake library registered for %q", path)}
	}
	if spec.LoadErr != nil {
		return nil, &LibraryLoadError{Path: path, Err: spec.LoadErr}
	}
	return &fakeLibrary{path: path, newActivator: spec.NewActivator}, nil
}

type fakeLibrary struct {
	path         string
	newActivator func() module.Activator
}

func (l *fakeLibrary) CreateActivator() (module.Activator, error) {
	a := l.newActivator()
	if a == nil {
		return nil, fmt.Errorf("platform: fake library %q returned nil activator", l.path)
	}
	return a, nil
}

func (l *fakeLibrary) Unload() error    { return nil }
func (l *fakeLibrary) Location() string { return l.path }
