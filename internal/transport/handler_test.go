package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tire-shop/internal/domain"
	"tire-shop/internal/middleware"
	"tire-shop/internal/repository/localstore"
	"tire-shop/internal/service"
	"tire-shop/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const adminEmail = "admin@tireshop.com"

type testAPI struct {
	router   http.Handler
	products service.ProductService
	carts    service.CartService
	sessions service.SessionService
	uploads  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return buildTestAPI(t, false)
}

// newAdminWritesAPI gates catalog writes behind an admin token.
func newAdminWritesAPI(t *testing.T) *testAPI {
	t.Helper()
	return buildTestAPI(t, true)
}

func buildTestAPI(t *testing.T, adminWrites bool) *testAPI {
	t.Helper()
	logger := zap.NewNop()

	db, err := localstore.Open("")
	require.NoError(t, err)
	productRepo := localstore.NewProductRepository(db)

	products := service.NewProductService(productRepo, logger)
	carts := service.NewCartService(localstore.NewCartRepository(db), productRepo, logger)
	sessions := service.NewSessionService(localstore.NewUserRepository(db), carts, service.SessionConfig{
		Secret:      "handler-test-secret",
		Expiry:      time.Hour,
		AdminEmails: []string{adminEmail},
	}, logger)

	uploads := t.TempDir()
	thumbs, err := storage.NewLocalStore(uploads, "/uploads")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.ErrorHandlingMiddleware(logger))
	auth := middleware.AuthMiddleware(sessions, logger)
	NewCartHandler(carts, logger).RegisterRoutes(r)
	var guards []func(http.Handler) http.Handler
	if adminWrites {
		guards = append(guards, auth, middleware.RequireAdmin(logger))
	}
	NewProductHandler(products, thumbs, 1<<20, logger).RegisterRoutes(r, guards...)
	NewSessionHandler(sessions, logger).RegisterRoutes(r, auth)
	r.NotFound(NotFoundHandler(logger))

	return &testAPI{router: r, products: products, carts: carts, sessions: sessions, uploads: uploads}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) register(t *testing.T, email string) string {
	t.Helper()
	session, err := a.sessions.Register(context.Background(), service.RegisterInput{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Age:       40,
		Password:  "secret1",
	})
	require.NoError(t, err)
	return session.Token
}

func (a *testAPI) seed(t *testing.T, code, brand string, price float64, stock int) *domain.Product {
	t.Helper()
	p, err := a.products.Create(context.Background(), domain.ProductInput{
		Brand:    brand,
		Model:    "Model " + code,
		Code:     code,
		Size:     "195/65 R15",
		Category: "auto",
		Price:    &price,
		Stock:    &stock,
	})
	require.NoError(t, err)
	return p
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
