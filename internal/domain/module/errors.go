package module

import "errors"

// Domain-specific errors for the Module and Manifest entities.
var (
	// ErrEmptySymbolicName indicates a manifest declared no symbolic name.
	ErrEmptySymbolicName = errors.New("module: symbolic_name cannot be empty")

	// ErrNotFound indicates the requested module was not found.
	ErrNotFound = errors.New("module: not found")

	// ErrAlreadyRegistered indicates a module with the same id already
	// exists in the registry — this should never happen given a
	// strictly-increasing id generator, and signals a caller bug.
	ErrAlreadyRegistered = errors.New("module: already registered")

	// ErrInvalidTransition indicates a lifecycle operation was attempted
	// from a state that does not permit it, e.g. start() on an Installed
	// module.
	ErrInvalidTransition = errors.New("module: invalid state transition")

	// ErrUninstalled indicates an operation was attempted on a module
	// that has already reached the terminal Uninstalled state.
	ErrUninstalled = errors.New("module: uninstalled")

	// ErrNilActivator indicates the module handle's activator factory
	// returned nil instead of an activator instance.
	ErrNilActivator = errors.New("module: activator factory returned nil")

	// ErrUnknownPermission indicates a manifest declared a permission not
	// recognised by the host's permission model, surfaced only when
	// framework.security.enabled rejects unenforceable manifests outright.
	ErrUnknownPermission = errors.New("module: unknown permission declared in manifest")
)
