package middleware

import (
	"net/http"

	"emergency-triage/internal/domain/entity"
	"emergency-triage/pkg/response"
)

// RequireRole creates a middleware that checks if the staff member has any of the required roles
// Role is read from context (set by AuthMiddleware from JWT claims)
func RequireRole(allowed ...entity.StaffRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetRoleFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Role information not found")
				return
			}

			for _, a := range allowed {
				if entity.StaffRole(role) == a {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Forbidden(w, "You don't have permission to access this resource")
		})
	}
}

// RequireAdmin is a convenience middleware for admin-only endpoints
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(entity.RoleAdmin)(next)
}

// RequireClinical admits any station role
func RequireClinical(next http.Handler) http.Handler {
	return RequireRole(entity.RoleNurse, entity.RoleDoctor, entity.RoleAdmin)(next)
}
