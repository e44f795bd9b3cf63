// Package manifestio provides a concrete on-disk manifest loader. §4.2
// leaves the manifest's physical format unspecified; this package picks
// YAML, the declarative format idiomatic for the kind of hand-edited
// module descriptors the reloader watches for changes.
package manifestio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iruldev/modhost/internal/domain/module"
	"github.com/iruldev/modhost/internal/domain/version"
)

// document is the YAML projection of module.Manifest.
type document struct {
	SymbolicName string   `yaml:"symbolic_name"`
	Version      string   `yaml:"version"`
	Library      string   `yaml:"library"`
	DisplayName  string   `yaml:"display_name"`
	Description  string   `yaml:"description"`
	AutoStart    bool     `yaml:"auto_start"`
	Permissions  []string `yaml:"permissions"`

	ExportedPackages []string `yaml:"exported_packages"`
	ImportedPackages []string `yaml:"imported_packages"`

	Dependencies []struct {
		Name     string `yaml:"name"`
		Range    string `yaml:"range"`
		Optional bool   `yaml:"optional"`
	} `yaml:"dependencies"`

	ProvidedServices []struct {
		Interface string `yaml:"interface"`
		Filter    string `yaml:"filter"`
	} `yaml:"provided_services"`

	RequiredServices []struct {
		Interface string `yaml:"interface"`
		Filter    string `yaml:"filter"`
	} `yaml:"required_services"`
}

// Loader reads a YAML manifest document from disk.
type Loader struct{}

// NewLoader returns the default YAML-backed manifest loader.
func NewLoader() *Loader { return &Loader{} }

// Load parses path into a module.Manifest, implementing
// lifecycle.ManifestLoader.
func (Loader) Load(path string) (*module.Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifestio: reading %q: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("manifestio: parsing %q: %w", path, err)
	}

	v, err := version.Parse(doc.Version)
	if err != nil {
		return nil, fmt.Errorf("manifestio: %q: %w", path, err)
	}

	m := &module.Manifest{
		SymbolicName:     doc.SymbolicName,
		Version:          v,
		Library:          doc.Library,
		DisplayName:      doc.DisplayName,
		Description:      doc.Description,
		ExportedPackages: doc.ExportedPackages,
		ImportedPackages: doc.ImportedPackages,
		Permissions:      doc.Permissions,
		AutoStart:        doc.AutoStart,
		Raw:              raw,
	}

	for _, d := range doc.Dependencies {
		rng, err := version.ParseRange(d.Range)
		if err != nil {
			return nil, fmt.Errorf("manifestio: %q: dependency %q: %w", path, d.Name, err)
		}
		m.Dependencies = append(m.Dependencies, module.Dependency{Name: d.Name, Range: rng, Optional: d.Optional})
	}
	for _, s := range doc.ProvidedServices {
		m.ProvidedServices = append(m.ProvidedServices, module.ServiceDescriptor{Interface: s.Interface, Filter: s.Filter})
	}
	for _, s := range doc.RequiredServices {
		m.RequiredServices = append(m.RequiredServices, module.ServiceDescriptor{Interface: s.Interface, Filter: s.Filter})
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
