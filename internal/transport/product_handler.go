package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"tire-shop/internal/domain"
	"tire-shop/internal/middleware"
	"tire-shop/internal/service"
	"tire-shop/internal/storage"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ListingResponse is the paginated product listing.
type ListingResponse struct {
	Status      string            `json:"status"`
	Payload     []*domain.Product `json:"payload"`
	TotalDocs   int               `json:"totalDocs"`
	Limit       int               `json:"limit"`
	TotalPages  int               `json:"totalPages"`
	PrevPage    *int              `json:"prevPage"`
	NextPage    *int              `json:"nextPage"`
	Page        int               `json:"page"`
	HasPrevPage bool              `json:"hasPrevPage"`
	HasNextPage bool              `json:"hasNextPage"`
	PrevLink    *string           `json:"prevLink"`
	NextLink    *string           `json:"nextLink"`
}

type filtersResponse struct {
	Status  string          `json:"status"`
	Payload *domain.Filters `json:"payload"`
}

type searchResponse struct {
	Status string `json:"status"`
	*domain.SearchResult
}

type deleteResponse struct {
	PID     string `json:"pid"`
	Message string `json:"message"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	products   service.ProductService
	thumbnails storage.Store
	maxUpload  int64
	logger     *zap.Logger
}

// NewProductHandler creates a new ProductHandler. maxUpload bounds thumbnail files in bytes.
func NewProductHandler(products service.ProductService, thumbnails storage.Store, maxUpload int64, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products:   products,
		thumbnails: thumbnails,
		maxUpload:  maxUpload,
		logger:     logger,
	}
}

// RegisterRoutes registers all product routes. Writes run behind writeGuards,
// so with none given the whole catalog is open.
func (h *ProductHandler) RegisterRoutes(r chi.Router, writeGuards ...func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/filters", h.Filters)
		r.Get("/search", h.Search)
		r.Get("/{pid}", h.Get)

		r.Group(func(r chi.Router) {
			if len(writeGuards) > 0 {
				r.Use(writeGuards...)
			}
			r.Post("/", h.Create)
			r.Put("/{pid}", h.Update)
			r.Delete("/{pid}", h.Delete)
			r.Post("/{pid}/thumbnails", h.UploadThumbnail)
		})
	})
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	query := domain.ParseProductQuery(r.URL.Query())
	page, err := h.products.List(r.Context(), query)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ListingResponse{
		Status:      "success",
		Payload:     page.Docs,
		TotalDocs:   page.TotalDocs,
		Limit:       page.Limit,
		TotalPages:  page.TotalPages,
		PrevPage:    page.PrevPage,
		NextPage:    page.NextPage,
		Page:        page.Page,
		HasPrevPage: page.HasPrevPage,
		HasNextPage: page.HasNextPage,
		PrevLink:    pageLink(r, page.PrevPage),
		NextLink:    pageLink(r, page.NextPage),
	})
}

// pageLink copies the request query and replaces only page.
func pageLink(r *http.Request, page *int) *string {
	if page == nil {
		return nil
	}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(*page))
	link := r.URL.Path + "?" + q.Encode()
	return &link
}

func (h *ProductHandler) Filters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.products.Filters(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, filtersResponse{Status: "success", Payload: filters})
}

func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.products.Search(r.Context(), q.Get("q"), page, limit)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, searchResponse{Status: "success", SearchResult: result})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.GetByID(r.Context(), chi.URLParam(r, "pid"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.products.Create(r.Context(), input)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.Hex()),
		zap.String("code", product.Code),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.products.Update(r.Context(), chi.URLParam(r, "pid"), patch)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "pid")
	if err := h.products.Delete(r.Context(), pid); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("Product deleted", zap.String("product_id", pid))
	middleware.RespondWithJSON(w, http.StatusOK, deleteResponse{PID: pid, Message: "product deleted"})
}

// UploadThumbnail stores the multipart "thumbnail" image and puts its URL
// first in the product's thumbnails.
func (h *ProductHandler) UploadThumbnail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	product, err := h.products.GetByID(ctx, chi.URLParam(r, "pid"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("thumbnail")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "thumbnail file is required")
		return
	}
	defer file.Close()
	if header.Size > h.maxUpload {
		middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "file is too large")
		return
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		middleware.RespondWithError(w, http.StatusBadRequest, "unreadable file")
		return
	}
	head = head[:n]
	contentType, ext, ok := storage.DetectImage(head)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "thumbnail must be a jpeg, png, gif or webp image")
		return
	}

	key := storage.ThumbnailKey(product.ID.Hex(), ext)
	url, err := h.thumbnails.Save(ctx, key, contentType, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	updated, err := h.products.AddThumbnail(ctx, product.ID.Hex(), url)
	if err != nil {
		if derr := h.thumbnails.Delete(ctx, key); derr != nil {
			h.logger.Warn("Failed to remove orphaned thumbnail", zap.String("key", key), zap.Error(derr))
		}
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Thumbnail uploaded",
		zap.String("product_id", product.ID.Hex()),
		zap.String("url", url),
		zap.Int64("size", header.Size),
	)
	middleware.RespondWithJSON(w, http.StatusOK, updated)
}
