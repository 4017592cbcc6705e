package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tire-shop/internal/domain"
	"tire-shop/internal/middleware"
	"tire-shop/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CartResponse wraps a cart after a mutation.
type CartResponse struct {
	Message string       `json:"message"`
	Cart    *domain.Cart `json:"cart"`
}

type quantityRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

// CartHandler handles HTTP requests for cart operations
type CartHandler struct {
	carts  service.CartService
	logger *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:  carts,
		logger: logger,
	}
}

// RegisterRoutes registers all cart routes. Carts are anonymous, so none of
// them require authentication.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/carts", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{cid}", h.Get)
		r.Put("/{cid}", h.Replace)
		r.Delete("/{cid}", h.Clear)
		r.Post("/{cid}/product/{pid}", h.AddProduct)
		r.Put("/{cid}/products/{pid}", h.UpdateQuantity)
		r.Delete("/{cid}/products/{pid}", h.RemoveProduct)
	})
}

func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.Create(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("Cart created", zap.String("cart_id", cart.ID.Hex()))
	middleware.RespondWithJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.Get(r.Context(), chi.URLParam(r, "cid"))
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// AddProduct adds one unit unless the body carries a quantity.
func (h *CartHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	qty, _, err := decodeQuantity(r)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	cart, err := h.carts.AddProduct(r.Context(), chi.URLParam(r, "cid"), chi.URLParam(r, "pid"), qty)
	h.respondCart(w, cart, err, "product added to cart")
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	qty, present, err := decodeQuantity(r)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	var q *int
	if present {
		q = &qty
	}
	cart, err := h.carts.UpdateQuantity(r.Context(), chi.URLParam(r, "cid"), chi.URLParam(r, "pid"), q)
	h.respondCart(w, cart, err, "quantity updated")
}

func (h *CartHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.RemoveProduct(r.Context(), chi.URLParam(r, "cid"), chi.URLParam(r, "pid"))
	h.respondCart(w, cart, err, "product removed from cart")
}

// Replace swaps every line of the cart for the array in the body.
func (h *CartHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var items []domain.LineItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			middleware.RespondWithDomainError(w, h.logger, err)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "body must be an array of {product, quantity}")
		return
	}
	cart, err := h.carts.ReplaceProducts(r.Context(), chi.URLParam(r, "cid"), items)
	h.respondCart(w, cart, err, "cart updated")
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.Clear(r.Context(), chi.URLParam(r, "cid"))
	h.respondCart(w, cart, err, "cart cleared")
}

func (h *CartHandler) respondCart(w http.ResponseWriter, cart *domain.Cart, err error, message string) {
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Message: message, Cart: cart})
}

// decodeQuantity reads an optional {quantity} body. present is false when the
// body or the field is missing.
func decodeQuantity(r *http.Request) (qty int, present bool, err error) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, false, nil
		}
		return 0, false, domain.InvalidArgument("invalid request body")
	}
	if len(req.Quantity) == 0 || string(req.Quantity) == "null" {
		return 0, false, nil
	}
	qty, err = domain.ParseQuantity(req.Quantity)
	if err != nil {
		return 0, false, err
	}
	return qty, true, nil
}
