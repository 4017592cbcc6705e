package middleware

import (
	"context"
	"net/http"
	"strings"

	"tire-shop/internal/domain"

	"go.uber.org/zap"
)

type contextKey string

const (
	userKey contextKey = "user"
	// tokenQueryParam carries the bearer token for clients that cannot set headers.
	tokenQueryParam = "token"
)

// Authenticator resolves a bearer token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// AuthMiddleware rejects requests without a valid bearer token and attaches
// the authenticated user to the request context.
func AuthMiddleware(auth Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, ok := parseBearer(authHeader)
			if !ok {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				RespondWithDomainError(w, logger, err)
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", user.ID.Hex()),
				zap.String("role", string(user.Role)),
			)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// BearerToken returns the token from the Authorization header, falling back
// to the token query parameter used by browser socket clients.
func BearerToken(r *http.Request) string {
	if token, ok := parseBearer(r.Header.Get("Authorization")); ok {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get(tokenQueryParam))
}

func parseBearer(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser extracts the authenticated user from request context
func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok && user != nil
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	user, ok := GetUser(ctx)
	if !ok {
		return "", false
	}
	return user.ID.Hex(), true
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (domain.Role, bool) {
	user, ok := GetUser(ctx)
	if !ok {
		return "", false
	}
	return user.Role, true
}
