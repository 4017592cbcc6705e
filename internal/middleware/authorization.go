package middleware

import (
	"net/http"

	"tire-shop/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the user has admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(logger, domain.RoleAdmin)
}

// RequireRole middleware ensures the user has one of the specified roles.
// It must run after AuthMiddleware.
func RequireRole(logger *zap.Logger, allowed ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role gate reached without an authenticated user",
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if !HasRole(role, allowed...) {
				logger.Warn("User role not authorized",
					zap.String("role", string(role)),
					zap.Any("allowed_roles", allowed),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HasRole reports whether role is one of allowed.
func HasRole(role domain.Role, allowed ...domain.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
