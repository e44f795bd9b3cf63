package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iruldev/modhost/internal/dispatcher"
	"github.com/iruldev/modhost/internal/domain/module"
	"github.com/iruldev/modhost/internal/platform"
	"github.com/iruldev/modhost/internal/registry"
	"github.com/iruldev/modhost/internal/resolver"
)

type panickyActivator struct{}

func (panickyActivator) Start(module.Context) error { panic("boom") }
func (panickyActivator) Stop(module.Context) error  { panic("boom") }

type panickyStopOnlyActivator struct{}

func (panickyStopOnlyActivator) Start(module.Context) error { return nil }
func (panickyStopOnlyActivator) Stop(module.Context) error  { panic("boom") }

type fakeActivator struct {
	startErr error
	stopErr  error
}

func (f *fakeActivator) Start(module.Context) error { return f.startErr }
func (f *fakeActivator) Stop(module.Context) error  { return f.stopErr }

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *platform.FakeLoader) {
	t.Helper()
	loader := platform.NewFakeLoader()
	e := New(registry.New(), loader, nil, dispatcher.New(1), opts...)
	return e, loader
}

func TestEngine_InstallWithoutLibraryStaysInstalledThenResolved(t *testing.T) {
	e, _ := newTestEngine(t)

	m, err := e.Install(&module.Manifest{SymbolicName: "demo.module"})
	require.NoError(t, err)
	assert.Equal(t, module.Resolved, m.State())
}

func TestEngine_InstallRejectsInvalidManifest(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Install(&module.Manifest{})
	require.ErrorIs(t, err, module.ErrEmptySymbolicName)
}

func TestEngine_InstallUnsatisfiedDependencyLeftInstalled(t *testing.T) {
	e, _ := newTestEngine(t)

	m, err := e.Install(&module.Manifest{
		SymbolicName: "dependent.module",
		Dependencies: []module.Dependency{{Name: "missing.module"}},
	})
	require.NoError(t, err)
	assert.Equal(t, module.Installed, m.State())
}

func TestEngine_StartStop(t *testing.T) {
	act := &fakeActivator{}
	e, loader := newTestEngine(t)
	loader.Register("/lib/demo.so", platform.FakeLibrarySpec{
		NewActivator: func() module.Activator { return act },
	})

	m, err := e.Install(&module.Manifest{SymbolicName: "demo.module", Library: "/lib/demo.so"})
	require.NoError(t, err)
	require.Equal(t, module.Resolved, m.State())

	require.NoError(t, e.Start(m.ID()))
	assert.Equal(t, module.Active, m.State())

	require.NoError(t, e.Stop(m.ID()))
	assert.Equal(t, module.Resolved, m.State())
}

func TestEngine_StartFromWrongStateFails(t *testing.T) {
	e, _ := newTestEngine(t)

	m, err := e.Install(&module.Manifest{
		SymbolicName: "dependent.module",
		Dependencies: []module.Dependency{{Name: "missing.module"}},
	})
	require.NoError(t, err)
	require.Equal(t, module.Installed, m.State())

	err = e.Start(m.ID())
	require.ErrorIs(t, err, module.ErrInvalidTransition)
}

func TestEngine_ActivatorStartErrorRevertsToResolved(t *testing.T) {
	e, loader := newTestEngine(t)
	wantErr := assert.AnError
	loader.Register("/lib/demo.so", platform.FakeLibrarySpec{
		NewActivator: func() module.Activator { return &fakeActivator{startErr: wantErr} },
	})

	m, err := e.Install(&module.Manifest{SymbolicName: "demo.module", Library: "/lib/demo.so"})
	require.NoError(t, err)

	err = e.Start(m.ID())
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, module.Resolved, m.State())
}

func TestEngine_ActivatorStartPanicIsRecoveredAsError(t *testing.T) {
	e, loader := newTestEngine(t)
	loader.Register("/lib/demo.so", platform.FakeLibrarySpec{
		NewActivator: func() module.Activator { return panickyActivator{} },
	})

	m, err := e.Install(&module.Manifest{SymbolicName: "demo.module", Library: "/lib/demo.so"})
	require.NoError(t, err)

	err = e.Start(m.ID())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, module.Resolved, m.State())
}

func TestEngine_ActivatorStopPanicIsRecoveredAndModuleStillTransitions(t *testing.T) {
	e, loader := newTestEngine(t)
	loader.Register("/lib/demo.so", platform.FakeLibrarySpec{
		NewActivator: func() module.Activator { return panickyStopOnlyActivator{} },
	})

	m, err := e.Install(&module.Manifest{SymbolicName: "demo.module", Library: "/lib/demo.so"})
	require.NoError(t, err)
	require.NoError(t, e.Start(m.ID()))

	require.NoError(t, e.Stop(m.ID()))
	assert.Equal(t, module.Resolved, m.State())
}

func TestEngine_Uninstall(t *testing.T) {
	e, _ := newTestEngine(t)

	m, err := e.Install(&module.Manifest{SymbolicName: "demo.module"})
	require.NoError(t, err)

	require.NoError(t, e.Uninstall(m.ID(), nil))
	assert.Equal(t, module.Uninstalled, m.State())
}

func TestEngine_SecurityDisabledByDefault_AcceptsUnknownPermission(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Install(&module.Manifest{
		SymbolicName: "demo.module",
		Permissions:  []string{"not:a:real:permission"},
	})
	require.NoError(t, err)
}

func TestEngine_SecurityEnabled_RejectsUnknownPermission(t *testing.T) {
	e, _ := newTestEngine(t, WithSecurityEnabled(true))

	_, err := e.Install(&module.Manifest{
		SymbolicName: "demo.module",
		Permissions:  []string{"not:a:real:permission"},
	})
	require.ErrorIs(t, err, module.ErrUnknownPermission)
}

func TestEngine_UpdateRejectsCyclicDependency(t *testing.T) {
	e, _ := newTestEngine(t)

	a, err := e.Install(&module.Manifest{SymbolicName: "a.module"})
	require.NoError(t, err)

	_, err = e.Install(&module.Manifest{
		SymbolicName: "b.module",
		Dependencies: []module.Dependency{{Name: "a.module"}},
	})
	require.NoError(t, err)

	// Re-parsing a.module to depend on b.module would close a cycle:
	// a.module -> b.module -> a.module. Update re-parses via the
	// manifest loader, so exercise rebuildGraph directly the same way
	// Update does after swapping the manifest.
	a.SetManifest(&module.Manifest{
		SymbolicName: "a.module",
		Dependencies: []module.Dependency{{Name: "b.module"}},
	})
	err = e.rebuildGraph()
	require.Error(t, err)
	var cycleErr *resolver.CyclicDependenciesError
	require.ErrorAs(t, err, &cycleErr)
}

func TestEngine_SecurityEnabled_AcceptsKnownPermission(t *testing.T) {
	e, _ := newTestEngine(t, WithSecurityEnabled(true))

	m, err := e.Install(&module.Manifest{
		SymbolicName: "demo.module",
		Permissions:  []string{"module:start", "service:register"},
	})
	require.NoError(t, err)
	assert.Equal(t, module.Resolved, m.State())
}
