// Package http provides HTTP server and routing functionality.
package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/iruldev/modhost/internal/interface/http/handlers"
)

// RegisterRoutes registers all API routes under the /api/v1 prefix.
//
// # Route Prefixing
//
// All routes registered here are automatically prefixed with /api/v1.
// Example: r.Get("/modules", ...) becomes GET /api/v1/modules.
//
// RegisterRoutes accepts the module handler group so the control routes
// below can be bound to it; pass nil to mount only the health/example
// routes (used by tests that don't need a live host).
func RegisterRoutes(r chi.Router, mods *handlers.Modules) {
	// Health check
	r.Get("/health", handlers.HealthHandler)

	// Example handler demonstrating the pattern
	r.Get("/example", WrapHandler(handlers.ExampleHandler))

	if mods == nil {
		return
	}

	r.Route("/modules", func(r chi.Router) {
		r.Get("/", WrapHandler(mods.List))
		r.Post("/", WrapHandler(mods.Install))
		r.Get("/{id}", WrapHandler(mods.Get))
		r.Post("/{id}/start", WrapHandler(mods.Start))
		r.Post("/{id}/stop", WrapHandler(mods.Stop))
		r.Post("/{id}/update", WrapHandler(mods.Update))
		r.Delete("/{id}", WrapHandler(mods.Uninstall))
	})
}
