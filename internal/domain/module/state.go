// Package module provides the Module, ModuleManifest and ModuleState domain
// types: the in-memory projection of an installable unit and its lifecycle
// state, independent of how it is loaded, resolved, or stored.
package module

// State is the lifecycle state of a Module.
//
//	INSTALLED ──deps satisfied──▶ RESOLVED ──start──▶ STARTING ──activator ok──▶ ACTIVE
//	                                 ▲                                              │
//	                                 └──────────────── STOPPING ◀──stop─────────────┘
//
// Any state except ACTIVE can transition directly to UNINSTALLED (terminal);
// ACTIVE must stop first.
type State int

const (
	// Installed means the module's manifest has been loaded but its
	// non-optional dependencies are not (yet) all satisfied.
	Installed State = iota
	// Resolved means every non-optional dependency is satisfied; the
	// module is ready to start.
	Resolved
	// Starting means start() was called and the activator is running.
	Starting
	// Active means the activator started successfully.
	Active
	// Stopping means stop() was called and the activator is shutting down.
	Stopping
	// Uninstalled is terminal: the module object must not be used again.
	Uninstalled
)

// String renders the state using the same names as lifecycle events.
func (s State) String() string {
	switch s {
	case Installed:
		return "INSTALLED"
	case Resolved:
		return "RESOLVED"
	case Starting:
		return "STARTING"
	case Active:
		return "ACTIVE"
	case Stopping:
		return "STOPPING"
	case Uninstalled:
		return "UNINSTALLED"
	default:
		return "UNKNOWN"
	}
}

// EventType is the set of lifecycle events the engine fires on transitions.
type EventType int

const (
	EventInstalled EventType = iota
	EventResolved
	EventStarting
	EventStarted
	EventStopping
	EventStopped
	EventUpdated
	EventUninstalled
	EventResolvedFailed
)

// String renders the event type using the names used in framework events.
func (e EventType) String() string {
	switch e {
	case EventInstalled:
		return "INSTALLED"
	case EventResolved:
		return "RESOLVED"
	case EventStarting:
		return "STARTING"
	case EventStarted:
		return "STARTED"
	case EventStopping:
		return "STOPPING"
	case EventStopped:
		return "STOPPED"
	case EventUpdated:
		return "UPDATED"
	case EventUninstalled:
		return "UNINSTALLED"
	case EventResolvedFailed:
		return "RESOLVED_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Event is fired to module-scoped and host-scoped listeners on every
// transition of a module's lifecycle state.
type Event struct {
	Type     EventType
	ModuleID uint64
	Name     string
	Err      error
}
