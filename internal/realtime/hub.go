package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"tire-shop/internal/domain"

	"go.uber.org/zap"
)

// Outgoing event names.
const (
	EventUpdateProducts = "updateProducts"
	EventProductAdded   = "productAdded"
	EventProductDeleted = "productDeleted"
	EventError          = "error"
)

// Incoming event names.
const (
	EventRequestProducts = "requestProducts"
	EventAddProduct      = "addProduct"
	EventDeleteProduct   = "deleteProduct"
)

// Frame is the envelope of every socket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// Catalog is the read side the hub broadcasts from.
type Catalog interface {
	All(ctx context.Context) ([]*domain.Product, error)
}

// Hub is the registry of live socket connections.
type Hub struct {
	catalog Catalog
	logger  *zap.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates an empty hub reading the catalog from catalog.
func NewHub(catalog Catalog, logger *zap.Logger) *Hub {
	return &Hub{
		catalog: catalog,
		logger:  logger,
		clients: make(map[string]*Client),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Socket connected", zap.String("conn_id", c.id), zap.Int("connections", total))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	total := len(h.clients)
	h.mu.Unlock()

	c.closeSend()
	if ok {
		h.logger.Info("Socket disconnected", zap.String("conn_id", c.id), zap.Int("connections", total))
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast queues one event on every connection. Connections whose send
// buffer is full are dropped.
func (h *Hub) Broadcast(event string, data any) error {
	msg, err := encodeFrame(event, data)
	if err != nil {
		return err
	}
	for _, c := range h.snapshot() {
		if !c.enqueue(msg) {
			h.logger.Warn("Dropping slow socket", zap.String("conn_id", c.id), zap.String("event", event))
			h.unregister(c)
		}
	}
	return nil
}

// CatalogChanged pushes the full catalog to every connection.
func (h *Hub) CatalogChanged(ctx context.Context, event domain.CatalogEvent) error {
	products, err := h.catalog.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog for broadcast: %w", err)
	}
	h.logger.Debug("Broadcasting catalog",
		zap.String("cause", string(event.Type)),
		zap.String("product_id", event.ProductID.Hex()),
		zap.Int("products", len(products)),
	)
	return h.Broadcast(EventUpdateProducts, products)
}

// Close disconnects every client.
func (h *Hub) Close() {
	for _, c := range h.snapshot() {
		h.unregister(c)
	}
}
