// Package admin implements the host's privileged surface, mounted at
// /admin. router.go gates it with AuthMiddleware + RequireRole("admin")
// when JWT authentication is enabled; otherwise it is served unauthenticated.
package admin

import (
	"net/http"

	"github.com/iruldev/modhost/internal/domain/module"
	"github.com/iruldev/modhost/internal/interface/http/response"
)

// ModuleHost is the subset of *host.Host the admin surface reads.
type ModuleHost interface {
	GetModules() []*module.Module
}

// HealthHandler confirms admin access is wired correctly.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	response.SuccessEnvelope(w, r.Context(), map[string]string{"status": "ok"})
}

// Admin exposes the privileged module-host inspection surface: full
// dependency and permission detail, not shown on the public /api/v1 view.
type Admin struct {
	host ModuleHost
}

// NewAdmin builds the admin handler group.
func NewAdmin(h ModuleHost) *Admin {
	return &Admin{host: h}
}

type moduleDetail struct {
	ID                uint64   `json:"id"`
	SymbolicName      string   `json:"symbolic_name"`
	Version           string   `json:"version"`
	State             string   `json:"state"`
	Permissions       []string `json:"permissions,omitempty"`
	ExportedPackages  []string `json:"exported_packages,omitempty"`
	ImportedPackages  []string `json:"imported_packages,omitempty"`
	ProvidedServices  []string `json:"provided_services,omitempty"`
	RequiredServices  []string `json:"required_services,omitempty"`
	DependencyNames   []string `json:"dependency_names,omitempty"`
}

// Modules returns every module with its full manifest detail, including
// permissions and dependency declarations.
func (a *Admin) Modules(w http.ResponseWriter, r *http.Request) {
	mods := a.host.GetModules()
	details := make([]moduleDetail, 0, len(mods))
	for _, m := range mods {
		mf := m.Manifest()
		d := moduleDetail{
			ID:                m.ID(),
			SymbolicName:      mf.SymbolicName,
			Version:           mf.Version.String(),
			State:             m.State().String(),
			Permissions:       mf.Permissions,
			ExportedPackages:  mf.ExportedPackages,
			ImportedPackages:  mf.ImportedPackages,
		}
		for _, svc := range mf.ProvidedServices {
			d.ProvidedServices = append(d.ProvidedServices, svc.Interface)
		}
		for _, svc := range mf.RequiredServices {
			d.RequiredServices = append(d.RequiredServices, svc.Interface)
		}
		for _, dep := range mf.Dependencies {
			d.DependencyNames = append(d.DependencyNames, dep.Name)
		}
		details = append(details, d)
	}
	response.SuccessEnvelope(w, r.Context(), details)
}
