// Package auth provides authentication and authorization types for the
// module host's admin surface and, when framework.security.enabled is
// set, for the manifest-declared permissions a module asks for at
// install time.
//
// # Roles
//
// The package defines three standard roles:
//   - RoleAdmin: full access to the /admin module-control surface
//   - RoleService: service-to-service authentication
//   - RoleUser: standard user access
//
// # Permissions
//
// Permissions follow the resource:action pattern (e.g., "module:install").
// A manifest's Permissions field lists the permissions a module requires;
// when framework.security.enabled is true, internal/lifecycle.Engine
// rejects Install for any manifest naming a permission IsValid reports
// unrecognised.
//
// # Usage Example
//
// Using roles in middleware:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(middleware.AuthMiddleware(jwtAuth))
//	    r.Use(middleware.RequireRole(string(auth.RoleAdmin)))
//	    r.Delete("/admin/modules/{id}", uninstallModuleHandler)
//	})
//
// Checking roles in handler:
//
//	claims, _ := middleware.FromContext(r.Context())
//	if claims.HasRole(string(auth.RoleAdmin)) {
//	    // Admin-specific logic
//	}
package auth

// Role represents a user role in the system.
// Roles define broad access levels and are used for coarse-grained authorization.
type Role string

// Standard roles for RBAC.
// These roles provide a hierarchy of access levels:
//   - Admin has full system access
//   - Service is for machine-to-machine authentication
//   - User is for standard end-user access
const (
	// RoleAdmin represents full system access for administrators.
	// Users with this role can perform any operation in the system.
	RoleAdmin Role = "admin"

	// RoleService represents service-to-service authentication.
	// Used for internal API calls between microservices.
	RoleService Role = "service"

	// RoleUser represents standard user access.
	// The default role for authenticated end-users.
	RoleUser Role = "user"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is one of the defined standard roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleService, RoleUser:
		return true
	}
	return false
}

// Permission represents a granular permission in the system.
// Permissions follow the resource:action pattern for fine-grained access
// control, either over the admin HTTP surface or, via a manifest's
// Permissions field, over what a module may do once active.
type Permission string

// Standard permissions a module manifest may declare it needs, and the
// admin surface may require of a caller.
const (
	// PermModuleInstall allows installing a new module from a manifest.
	PermModuleInstall Permission = "module:install"

	// PermModuleStart allows starting a resolved module.
	PermModuleStart Permission = "module:start"

	// PermModuleStop allows stopping an active module.
	PermModuleStop Permission = "module:stop"

	// PermModuleUpdate allows replacing a module's library/manifest path.
	PermModuleUpdate Permission = "module:update"

	// PermModuleUninstall allows permanently removing a module.
	PermModuleUninstall Permission = "module:uninstall"

	// PermServiceRegister allows a module to register a service in the
	// host-wide service table for other modules to look up.
	PermServiceRegister Permission = "service:register"
)

// String returns the string representation of the permission.
func (p Permission) String() string {
	return string(p)
}

// IsValid checks if the permission is one of the defined standard permissions.
func (p Permission) IsValid() bool {
	switch p {
	case PermModuleInstall, PermModuleStart, PermModuleStop, PermModuleUpdate, PermModuleUninstall, PermServiceRegister:
		return true
	}
	return false
}
