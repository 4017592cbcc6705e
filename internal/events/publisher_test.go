package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"tire-shop/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *memoryWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *memoryWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisher_CatalogChanged(t *testing.T) {
	w := &memoryWriter{}
	p := newPublisher(w, "catalog", zap.NewNop())

	product := &domain.Product{ID: domain.NewID(), Brand: "Pirelli", Code: "P-1"}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := domain.CatalogEvent{Type: domain.ProductCreated, ProductID: product.ID, Product: product, At: at}

	require.NoError(t, p.CatalogChanged(context.Background(), event))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, product.ID.Hex(), string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "product.created", string(msg.Headers[0].Value))

	var decoded domain.CatalogEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, domain.ProductCreated, decoded.Type)
	assert.Equal(t, product.ID, decoded.ProductID)
	require.NotNil(t, decoded.Product)
	assert.Equal(t, "P-1", decoded.Product.Code)
}

func TestPublisher_DeleteCarriesNoDocument(t *testing.T) {
	w := &memoryWriter{}
	p := newPublisher(w, "catalog", zap.NewNop())
	id := domain.NewID()

	require.NoError(t, p.CatalogChanged(context.Background(), domain.CatalogEvent{Type: domain.ProductDeleted, ProductID: id}))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &raw))
	assert.NotContains(t, raw, "product")
	assert.Equal(t, id.Hex(), raw["productId"])
}

func TestPublisher_WriteFailure(t *testing.T) {
	w := &memoryWriter{err: errors.New("broker down")}
	p := newPublisher(w, "catalog", zap.NewNop())

	err := p.CatalogChanged(context.Background(), domain.CatalogEvent{Type: domain.ProductUpdated, ProductID: domain.NewID()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product.updated")
	assert.Contains(t, err.Error(), "broker down")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewPublisher_ConfiguresWriter(t *testing.T) {
	p := NewPublisher([]string{"kafka-1:9092", "kafka-2:9092"}, "catalog", zap.NewNop())
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "catalog", w.Topic)
	assert.Equal(t, "kafka-1:9092,kafka-2:9092", w.Addr.String())
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
