package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tire-shop/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// tokenTable authenticates tokens by exact lookup.
type tokenTable map[string]*domain.User

func (t tokenTable) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if u, ok := t[token]; ok {
		return u, nil
	}
	return nil, domain.Unauthorized("invalid or expired token")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(tokenTable{}, zap.NewNop())(okHandler())

			req := httptest.NewRequest(method, "/api/"+pathSuffix, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_UnknownTokensAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("tokens the authenticator refuses yield 401", prop.ForAll(
		func(token string) bool {
			handler := AuthMiddleware(tokenTable{}, zap.NewNop())(okHandler())

			req := httptest.NewRequest("GET", "/api/sessions/current", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthMiddleware_AttachesUser(t *testing.T) {
	user := &domain.User{ID: domain.NewID(), Email: "a@b.com", Role: domain.RoleUser}
	var seen *domain.User
	handler := AuthMiddleware(tokenTable{"good": user}, zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = GetUser(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "bearer good")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Same(t, user, seen)
}

func TestAuthMiddleware_RejectsMalformedHeader(t *testing.T) {
	handler := AuthMiddleware(tokenTable{"good": {}}, zap.NewNop())(okHandler())

	for _, header := range []string{"good", "Basic good", "Bearer", "Bearer a b"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws?token=from-query", nil)
	assert.Equal(t, "from-query", BearerToken(req))

	req.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", BearerToken(req))

	assert.Equal(t, "", BearerToken(httptest.NewRequest("GET", "/ws", nil)))
}

func TestRequireRole(t *testing.T) {
	gate := RequireAdmin(zap.NewNop())(okHandler())

	cases := []struct {
		name string
		user *domain.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"customer", &domain.User{Role: domain.RoleUser}, http.StatusForbidden},
		{"admin", &domain.User{Role: domain.RoleAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/products", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), tc.user))
			}
			w := httptest.NewRecorder()
			gate.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
