package transport

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tire-shop/internal/domain"
	"tire-shop/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductHandler_ListEnvelopeAndLinks(t *testing.T) {
	api := newTestAPI(t)
	for i, brand := range []string{"Pirelli", "Fate", "Michelin", "Bridgestone", "Goodyear"} {
		api.seed(t, "L-"+brand, brand, float64(100+i*10), i%2)
	}

	w := api.do(t, http.MethodGet, "/api/products?limit=2&page=2&sort=price_asc&category=auto", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ListingResponse](t, w)

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 5, resp.TotalDocs)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 2, resp.Page)
	require.Len(t, resp.Payload, 2)
	assert.Equal(t, "Michelin", resp.Payload[0].Brand)
	assert.True(t, resp.HasPrevPage)
	assert.True(t, resp.HasNextPage)

	require.NotNil(t, resp.NextLink)
	next, err := url.Parse(*resp.NextLink)
	require.NoError(t, err)
	assert.Equal(t, "/api/products", next.Path)
	assert.Equal(t, "3", next.Query().Get("page"))
	assert.Equal(t, "price_asc", next.Query().Get("sort"))
	assert.Equal(t, "auto", next.Query().Get("category"))
	assert.Equal(t, "2", next.Query().Get("limit"))

	w = api.do(t, http.MethodGet, "/api/products?available=true", "", nil)
	resp = decode[ListingResponse](t, w)
	assert.Equal(t, 2, resp.TotalDocs)
	assert.Nil(t, resp.PrevLink)
	assert.Nil(t, resp.NextLink)
}

func TestProductHandler_AnonymousWrites(t *testing.T) {
	api := newTestAPI(t)
	body := map[string]interface{}{
		"brand": "Fate", "model": "Eximia", "code": "A-1",
		"category": "auto", "price": 95, "stock": 2,
	}

	w := api.do(t, http.MethodPost, "/api/products", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[domain.Product](t, w)

	w = api.do(t, http.MethodPut, "/api/products/"+created.ID.Hex(), "", map[string]int{"stock": 7})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, decode[domain.Product](t, w).Stock)

	w = api.do(t, http.MethodDelete, "/api/products/"+created.ID.Hex(), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProductHandler_WritesRequireAdmin(t *testing.T) {
	api := newAdminWritesAPI(t)
	userToken := api.register(t, "customer@tireshop.com")
	adminToken := api.register(t, adminEmail)

	body := map[string]interface{}{
		"brand": "Pirelli", "model": "Cinturato", "code": "W-1",
		"category": "auto", "price": 210.5, "stock": 4,
	}

	w := api.do(t, http.MethodPost, "/api/products", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/api/products", userToken, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPost, "/api/products", adminToken, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[domain.Product](t, w)
	assert.Equal(t, domain.DefaultSize, created.Size)

	w = api.do(t, http.MethodPost, "/api/products", adminToken, map[string]interface{}{"brand": "Fate"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing required fields: model, code, price, stock, category",
		decode[middleware.ErrorResponse](t, w).Message)

	w = api.do(t, http.MethodPut, "/api/products/"+created.ID.Hex(), adminToken, map[string]int{"stock": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[domain.Product](t, w).Stock)

	w = api.do(t, http.MethodDelete, "/api/products/"+created.ID.Hex(), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID.Hex(), decode[deleteResponse](t, w).PID)

	w = api.do(t, http.MethodGet, "/api/products/"+created.ID.Hex(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandler_FiltersAndSearch(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, "F-1", "Pirelli", 100, 1)
	api.seed(t, "F-2", "Fate", 90, 1)

	w := api.do(t, http.MethodGet, "/api/products/filters", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[filtersResponse](t, w)
	assert.Equal(t, []string{"Fate", "Pirelli"}, resp.Payload.Brands)

	w = api.do(t, http.MethodGet, "/api/products/search?q=pirelli", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProductHandler_UploadThumbnail(t *testing.T) {
	api := newTestAPI(t)
	adminToken := api.register(t, adminEmail)
	p := api.seed(t, "T-1", "Pirelli", 100, 1)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")
	body, contentType := multipartBody(t, "thumbnail", "tire.png", png)
	req := httptest.NewRequest(http.MethodPost, "/api/products/"+p.ID.Hex()+"/thumbnails", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[domain.Product](t, w)
	require.Len(t, updated.Thumbnails, 1)
	thumb := updated.Thumbnails[0]
	assert.True(t, strings.HasPrefix(thumb, "/uploads/products/"+p.ID.Hex()+"/"))
	assert.True(t, strings.HasSuffix(thumb, ".png"))

	stored, err := os.ReadFile(filepath.Join(api.uploads, strings.TrimPrefix(thumb, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, png, stored)

	body, contentType = multipartBody(t, "thumbnail", "notes.txt", []byte("just some text"))
	req = httptest.NewRequest(http.MethodPost, "/api/products/"+p.ID.Hex()+"/thumbnails", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotFoundPage(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/no/such/page", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/no/such/page")
}
