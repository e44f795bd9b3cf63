// Package handlers implements the module host's HTTP control surface:
// health checks and the install/list/get/start/stop/uninstall operations
// exposed over the host facade.
package handlers

import (
	"net/http"

	"github.com/iruldev/modhost/internal/interface/http/response"
)

// HealthHandler reports liveness. It never depends on the host, so it
// answers even while the host is still wiring up its subsystems.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	response.SuccessEnvelope(w, r.Context(), map[string]string{"status": "ok"})
}

// ExampleHandler demonstrates the HandlerFuncE pattern; kept as the
// reference example routes.go points new handlers at.
func ExampleHandler(w http.ResponseWriter, r *http.Request) error {
	response.SuccessEnvelope(w, r.Context(), map[string]string{"message": "example"})
	return nil
}
