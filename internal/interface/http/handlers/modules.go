package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iruldev/modhost/internal/domain/errors"
	"github.com/iruldev/modhost/internal/domain/module"
	"github.com/iruldev/modhost/internal/interface/http/request"
	"github.com/iruldev/modhost/internal/interface/http/response"
	"github.com/iruldev/modhost/internal/lifecycle"
)

// ModuleHost is the subset of *host.Host the control surface drives.
// Handlers depend on this interface, not the concrete type, so tests can
// supply a fake host without wiring the whole façade.
type ModuleHost interface {
	Install(manifest *module.Manifest) (*module.Module, error)
	StartModule(id uint64) error
	StopModule(id uint64) error
	Update(id uint64, libraryPath string) error
	Uninstall(id uint64) error
	GetModule(id uint64) (*module.Module, error)
	GetModuleByName(name string) (*module.Module, error)
	GetModules() []*module.Module
}

// Modules implements the module-host's HTTP control surface: install,
// list, inspect, start, stop, update, and uninstall.
type Modules struct {
	host     ModuleHost
	manifest lifecycle.ManifestLoader
}

// NewModules builds a Modules handler group.
func NewModules(h ModuleHost, ml lifecycle.ManifestLoader) *Modules {
	return &Modules{host: h, manifest: ml}
}

// moduleView is the JSON projection of a module sent over the wire.
type moduleView struct {
	ID           uint64 `json:"id"`
	SymbolicName string `json:"symbolic_name"`
	Version      string `json:"version"`
	State        string `json:"state"`
	DisplayName  string `json:"display_name,omitempty"`
	AutoStart    bool   `json:"auto_start"`
}

func toModuleView(m *module.Module) moduleView {
	mf := m.Manifest()
	return moduleView{
		ID:           m.ID(),
		SymbolicName: mf.SymbolicName,
		Version:      mf.Version.String(),
		State:        m.State().String(),
		DisplayName:  mf.DisplayName,
		AutoStart:    mf.AutoStart,
	}
}

func idFromPath(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.NewDomainWithHint(errors.CodeBadRequest, "invalid module id", "id must be a positive integer")
	}
	return id, nil
}

// List returns every registered module.
func (h *Modules) List(w http.ResponseWriter, r *http.Request) error {
	mods := h.host.GetModules()
	views := make([]moduleView, 0, len(mods))
	for _, m := range mods {
		views = append(views, toModuleView(m))
	}
	response.SuccessEnvelope(w, r.Context(), views)
	return nil
}

// Get returns a single module by id.
func (h *Modules) Get(w http.ResponseWriter, r *http.Request) error {
	id, err := idFromPath(r)
	if err != nil {
		return err
	}
	m, err := h.host.GetModule(id)
	if err != nil {
		return errors.NewDomain(errors.CodeNotFound, "module not found")
	}
	response.SuccessEnvelope(w, r.Context(), toModuleView(m))
	return nil
}

// installRequest names the on-disk manifest to install. The module-host
// installs from a manifest path rather than an inline body, matching how
// the reloader discovers and re-parses manifests on disk.
type installRequest struct {
	ManifestPath string `json:"manifest_path" validate:"required"`
}

// Install parses the request's manifest and installs the resulting
// module, returning it in the RESOLVED or INSTALLED state depending on
// whether its dependencies could be satisfied immediately.
func (h *Modules) Install(w http.ResponseWriter, r *http.Request) error {
	var req installRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return errors.NewDomain(errors.CodeBadRequest, "invalid request body")
	}
	if verrs := request.Validate(req); len(verrs) > 0 {
		return errors.NewDomainWithHint(errors.CodeValidationError, "manifest_path is required", "set manifest_path to the module's manifest file")
	}

	manifest, err := h.manifest.Load(req.ManifestPath)
	if err != nil {
		return errors.NewDomainWithCause(errors.CodeBadRequest, "failed to load manifest", err)
	}

	m, err := h.host.Install(manifest)
	if err != nil {
		return errors.NewDomainWithCause(errors.CodeConflict, "failed to install module", err)
	}

	response.SuccessEnvelopeWithStatus(w, http.StatusCreated, r.Context(), toModuleView(m))
	return nil
}

// Start transitions an installed (RESOLVED) module to ACTIVE.
func (h *Modules) Start(w http.ResponseWriter, r *http.Request) error {
	id, err := idFromPath(r)
	if err != nil {
		return err
	}
	if err := h.host.StartModule(id); err != nil {
		return errors.NewDomainWithCause(errors.CodeConflict, "failed to start module", err)
	}
	m, err := h.host.GetModule(id)
	if err != nil {
		return errors.NewDomain(errors.CodeNotFound, "module not found")
	}
	response.SuccessEnvelope(w, r.Context(), toModuleView(m))
	return nil
}

// Stop transitions an active module back to RESOLVED.
func (h *Modules) Stop(w http.ResponseWriter, r *http.Request) error {
	id, err := idFromPath(r)
	if err != nil {
		return err
	}
	if err := h.host.StopModule(id); err != nil {
		return errors.NewDomainWithCause(errors.CodeConflict, "failed to stop module", err)
	}
	m, err := h.host.GetModule(id)
	if err != nil {
		return errors.NewDomain(errors.CodeNotFound, "module not found")
	}
	response.SuccessEnvelope(w, r.Context(), toModuleView(m))
	return nil
}

// updateRequest names the new library path to swap into a module. An empty
// LibraryPath is valid: it tells Update to re-resolve against the already
// registered library, picking up only a manifest change.
type updateRequest struct {
	LibraryPath string `json:"library_path"`
}

// Update re-installs a module against a new library path, re-resolving
// and restarting it if it was previously active.
func (h *Modules) Update(w http.ResponseWriter, r *http.Request) error {
	id, err := idFromPath(r)
	if err != nil {
		return err
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return errors.NewDomain(errors.CodeBadRequest, "invalid request body")
	}
	if err := h.host.Update(id, req.LibraryPath); err != nil {
		return errors.NewDomainWithCause(errors.CodeConflict, "failed to update module", err)
	}
	m, err := h.host.GetModule(id)
	if err != nil {
		return errors.NewDomain(errors.CodeNotFound, "module not found")
	}
	response.SuccessEnvelope(w, r.Context(), toModuleView(m))
	return nil
}

// Uninstall permanently removes a module.
func (h *Modules) Uninstall(w http.ResponseWriter, r *http.Request) error {
	id, err := idFromPath(r)
	if err != nil {
		return err
	}
	if err := h.host.Uninstall(id); err != nil {
		return errors.NewDomainWithCause(errors.CodeConflict, "failed to uninstall module", err)
	}
	response.SuccessEnvelope(w, r.Context(), map[string]uint64{"uninstalled": id})
	return nil
}
