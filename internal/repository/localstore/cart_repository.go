package localstore

import (
	"context"

	"tire-shop/internal/domain"
	"tire-shop/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cartRepository struct {
	db *DB
}

// NewCartRepository creates a CartRepository backed by db
func NewCartRepository(db *DB) repository.CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return commit(r.db, cartsFile, r.db.carts, cart.ID, cart.Clone())
}

func (r *cartRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Cart, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.carts[id]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (r *cartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.carts[cart.ID]
	if !ok {
		return repository.ErrCartNotFound
	}
	updated := cart.Clone()
	updated.CreatedAt = stored.CreatedAt
	for i := range updated.Products {
		updated.Products[i].Product = nil
	}
	return commit(r.db, cartsFile, r.db.carts, cart.ID, updated)
}

func (r *cartRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.carts[id]; !ok {
		return repository.ErrCartNotFound
	}
	return commit(r.db, cartsFile, r.db.carts, id, nil)
}
