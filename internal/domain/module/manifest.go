package module

import (
	"fmt"

	"github.com/iruldev/modhost/internal/domain/version"
)

// Dependency is one declared dependency of a manifest: a symbolic name, the
// version range it accepts, and whether its absence is tolerated.
type Dependency struct {
	Name     string
	Range    version.Range
	Optional bool
}

// ServiceDescriptor names a provided or required service interface, used by
// the resolver and the service registry to match modules against each other.
type ServiceDescriptor struct {
	Interface string
	Filter    string
}

// Manifest is the typed, immutable-once-parsed projection of a module's
// declaration. The on-disk representation is unspecified; any loader that
// produces a Manifest satisfying Validate is acceptable.
type Manifest struct {
	SymbolicName string
	Version      version.Version
	Library      string // path to the loadable library, empty if none
	DisplayName  string
	Description  string

	Dependencies []Dependency

	ExportedPackages []string
	ImportedPackages []string

	ProvidedServices []ServiceDescriptor
	RequiredServices []ServiceDescriptor

	Permissions []string

	AutoStart bool

	// Raw retains the manifest source verbatim, for diagnostics and for
	// re-parsing when a reload needs to diff against what is on disk.
	Raw []byte
}

// Validate checks that symbolic_name is non-empty. It does not check the
// Version: a zero Version passes.
func (m *Manifest) Validate() error {
	if m.SymbolicName == "" {
		return ErrEmptySymbolicName
	}
	return nil
}

// NewManifest builds a Manifest after validating identity fields.
func NewManifest(symbolicName, versionStr, library string) (*Manifest, error) {
	v, err := version.Parse(versionStr)
	if err != nil {
		return nil, fmt.Errorf("module: invalid manifest version: %w", err)
	}
	m := &Manifest{
		SymbolicName: symbolicName,
		Version:      v,
		Library:      library,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// NonOptionalDependencies returns the subset of Dependencies that are not
// optional — the set the resolver must satisfy before a module can reach
// Resolved.
func (m *Manifest) NonOptionalDependencies() []Dependency {
	out := make([]Dependency, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		if !d.Optional {
			out = append(out, d)
		}
	}
	return out
}
