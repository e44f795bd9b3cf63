package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/iruldev/modhost/internal/interface/http/handlers"
)

// NewInternalRouter builds the operator-facing router meant to be bound to
// framework.internal.bind_address/port rather than the public listener: a
// bare health check with no JWT/RBAC gate and no rate limiting, since this
// listener is expected to stay off the public network entirely.
func NewInternalRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", handlers.HealthHandler)
	return r
}
