package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tire-shop/internal/domain"
	"tire-shop/internal/repository"
	"tire-shop/internal/repository/localstore"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type testStore struct {
	products repository.ProductRepository
	carts    repository.CartRepository
	users    repository.UserRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	db, err := localstore.Open("")
	require.NoError(t, err)
	return &testStore{
		products: localstore.NewProductRepository(db),
		carts:    localstore.NewCartRepository(db),
		users:    localstore.NewUserRepository(db),
	}
}

func ptr[T any](v T) *T { return &v }

func tireInput(code string) domain.ProductInput {
	return domain.ProductInput{
		Brand:    "Pirelli",
		Model:    "P7",
		Code:     code,
		Size:     "205/55 R16",
		Category: "auto",
		Price:    ptr(120.5),
		Stock:    ptr(4),
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	events []domain.CatalogEvent
	err    error
}

func (o *recordingObserver) CatalogChanged(ctx context.Context, event domain.CatalogEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return o.err
}

func (o *recordingObserver) types() []domain.CatalogEventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.CatalogEventType, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type
	}
	return out
}

// failingUserRepository accepts lookups but refuses every insert.
type failingUserRepository struct {
	repository.UserRepository
}

func (failingUserRepository) Create(ctx context.Context, user *domain.User) error {
	return errors.New("disk full")
}

type recordingCartRepository struct {
	repository.CartRepository
	created []primitive.ObjectID
}

func (r *recordingCartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	r.created = append(r.created, cart.ID)
	return r.CartRepository.Create(ctx, cart)
}

// brokenProductRepository fails lookups used when joining carts.
type brokenProductRepository struct {
	repository.ProductRepository
}

func (brokenProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Product, error) {
	return nil, errors.New("connection reset")
}

type stubSearcher struct {
	ids   []primitive.ObjectID
	total int
	from  int
	size  int
}

func (s *stubSearcher) Search(ctx context.Context, text string, from, size int) ([]primitive.ObjectID, int, error) {
	s.from, s.size = from, size
	return s.ids, s.total, nil
}

var testLogger = zap.NewNop()
