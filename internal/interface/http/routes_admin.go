// Package http provides HTTP server and routing functionality.
package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/iruldev/modhost/internal/interface/http/admin"
)

// RegisterAdminRoutes registers all Admin API routes under the /admin prefix.
//
// Admin routes are mounted at root level (/admin), not under /api/v1, to
// clearly separate administrative endpoints from the versioned API.
//
// Admin routes MUST have both AuthMiddleware and RequireRole("admin")
// applied ahead of them; router.go wires that when FRAMEWORK_SECURITY
// (JWT) is enabled.
func RegisterAdminRoutes(r chi.Router, adm *admin.Admin) {
	r.Get("/health", admin.HealthHandler)

	if adm == nil {
		return
	}

	r.Get("/modules", adm.Modules)
}
