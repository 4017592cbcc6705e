package mongostore

import (
	"context"
	"errors"
	"fmt"

	"tire-shop/internal/domain"
	"tire-shop/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type cartRepository struct {
	coll *mongo.Collection
}

// NewCartRepository creates a CartRepository over the carts collection
func NewCartRepository(db *mongo.Database) repository.CartRepository {
	return &cartRepository{coll: db.Collection(cartsCollection)}
}

func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	if cart.Products == nil {
		cart.Products = []domain.LineItem{}
	}
	if _, err := r.coll.InsertOne(ctx, cart); err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (r *cartRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Cart, error) {
	var cart domain.Cart
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&cart); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	if cart.Products == nil {
		cart.Products = []domain.LineItem{}
	}
	return &cart, nil
}

// Save overwrites the products array in a single update
func (r *cartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	products := cart.Products
	if products == nil {
		products = []domain.LineItem{}
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": cart.ID},
		bson.M{"$set": bson.M{"products": products, "updatedAt": cart.UpdatedAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrCartNotFound
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrCartNotFound
	}
	return nil
}
