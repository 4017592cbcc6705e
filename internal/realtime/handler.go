package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tire-shop/internal/domain"
	"tire-shop/internal/middleware"
	"tire-shop/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	errFetchProducts   = "failed to fetch products"
	errNotPermitted    = "insufficient permissions"
	errInvalidPayload  = "invalid payload"
	errUnknownEvent    = "unknown event"
	errInternal        = "internal server error"
	eventHandleTimeout = 15 * time.Second
)

type productAck struct {
	Success bool            `json:"success"`
	Product *domain.Product `json:"product,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type deleteAck struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler upgrades HTTP requests to catalog sockets.
type Handler struct {
	hub      *Hub
	products service.ProductService
	auth     middleware.Authenticator
	upgrader websocket.Upgrader
	logger   *zap.Logger

	adminWrites bool
}

// HandlerOption configures a socket Handler.
type HandlerOption func(*Handler)

// WithAdminWrites makes addProduct and deleteProduct admin-only.
func WithAdminWrites(enabled bool) HandlerOption {
	return func(h *Handler) {
		h.adminWrites = enabled
	}
}

// NewHandler creates a socket endpoint. An empty origins list, or one holding
// "*", accepts any Origin.
func NewHandler(hub *Hub, products service.ProductService, auth middleware.Authenticator, origins []string, logger *zap.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub:      hub,
		products: products,
		auth:     auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(origins),
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func checkOrigin(origins []string) func(*http.Request) bool {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowAll || origin == "" || allowed[origin]
	}
}

// ServeHTTP authenticates the optional bearer token and starts the pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var user *domain.User
	if token := middleware.BearerToken(r); token != "" {
		u, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			h.logger.Debug("Socket token rejected", zap.Error(err))
			middleware.RespondWithDomainError(w, h.logger, err)
			return
		}
		user = u
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Socket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(uuid.NewString(), h.hub, conn, user)
	h.hub.register(c)
	go c.writePump()
	go c.readPump(h.dispatch)
}

func (h *Handler) dispatch(c *Client, frame Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), eventHandleTimeout)
	defer cancel()

	switch frame.Event {
	case EventRequestProducts:
		h.requestProducts(ctx, c)
	case EventAddProduct:
		h.addProduct(ctx, c, frame.Data)
	case EventDeleteProduct:
		h.deleteProduct(ctx, c, frame.Data)
	default:
		h.logger.Debug("Unknown socket event", zap.String("conn_id", c.id), zap.String("event", frame.Event))
		c.emit(EventError, errUnknownEvent)
	}
}

func (h *Handler) requestProducts(ctx context.Context, c *Client) {
	products, err := h.products.All(ctx)
	if err != nil {
		h.logger.Error("Failed to fetch products for socket", zap.String("conn_id", c.id), zap.Error(err))
		c.emit(EventError, errFetchProducts)
		return
	}
	c.emit(EventUpdateProducts, products)
}

// addProduct relies on the hub observing the catalog: the updateProducts
// broadcast is queued before the ack.
func (h *Handler) permitted(c *Client) bool {
	return !h.adminWrites || c.isAdmin()
}

func (h *Handler) addProduct(ctx context.Context, c *Client, data json.RawMessage) {
	if !h.permitted(c) {
		c.emit(EventProductAdded, productAck{Error: errNotPermitted})
		return
	}
	var input domain.ProductInput
	if err := json.Unmarshal(data, &input); err != nil {
		c.emit(EventProductAdded, productAck{Error: errInvalidPayload})
		return
	}

	product, err := h.products.Create(ctx, input)
	if err != nil {
		c.emit(EventProductAdded, productAck{Error: h.failure(err)})
		return
	}
	h.logger.Info("Product added over socket",
		zap.String("conn_id", c.id),
		zap.String("product_id", product.ID.Hex()),
	)
	c.emit(EventProductAdded, productAck{Success: true, Product: product})
}

func (h *Handler) deleteProduct(ctx context.Context, c *Client, data json.RawMessage) {
	if !h.permitted(c) {
		c.emit(EventProductDeleted, deleteAck{Error: errNotPermitted})
		return
	}
	id, ok := productRef(data)
	if !ok {
		c.emit(EventProductDeleted, deleteAck{Error: errInvalidPayload})
		return
	}

	if err := h.products.Delete(ctx, id); err != nil {
		c.emit(EventProductDeleted, deleteAck{Error: h.failure(err)})
		return
	}
	h.logger.Info("Product deleted over socket", zap.String("conn_id", c.id), zap.String("product_id", id))
	c.emit(EventProductDeleted, deleteAck{Success: true, ID: id})
}

// productRef accepts a bare id string or an object carrying id or _id.
func productRef(data json.RawMessage) (string, bool) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return id, id != ""
	}
	var obj struct {
		ID    string `json:"id"`
		MgoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", false
	}
	if obj.ID != "" {
		return obj.ID, true
	}
	return obj.MgoID, obj.MgoID != ""
}

func (h *Handler) failure(err error) string {
	if msg, ok := domain.Message(err); ok {
		return msg
	}
	h.logger.Error("Socket event failed", zap.Error(err))
	return errInternal
}
