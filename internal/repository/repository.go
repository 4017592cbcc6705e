package repository

import (
	"context"

	"tire-shop/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrProductNotFound   = &domain.Error{Kind: domain.ErrNotFound, Msg: "product not found"}
	ErrCartNotFound      = &domain.Error{Kind: domain.ErrNotFound, Msg: "cart not found"}
	ErrUserNotFound      = &domain.Error{Kind: domain.ErrNotFound, Msg: "user not found"}
	ErrUserAlreadyExists = &domain.Error{Kind: domain.ErrConflict, Msg: "email already registered"}
	ErrDuplicateCode     = &domain.Error{Kind: domain.ErrConflict, Msg: "product code already exists"}
)

// ProductField names a product attribute that can be listed with Distinct.
type ProductField string

const (
	FieldBrand    ProductField = "brand"
	FieldCategory ProductField = "category"
	FieldSize     ProductField = "size"
)

// Valid reports whether f is one of the distinct-able fields.
func (f ProductField) Valid() bool {
	return f == FieldBrand || f == FieldCategory || f == FieldSize
}

// ProductRepository defines the interface for product data access.
// Every backend implements all of it.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Product, error)
	FindByCode(ctx context.Context, code string) (*domain.Product, error)
	List(ctx context.Context, query domain.ProductQuery) (*domain.ProductPage, error)
	All(ctx context.Context) ([]*domain.Product, error)
	Distinct(ctx context.Context, field ProductField) ([]string, error)
}

// CartRepository defines the interface for cart data access
type CartRepository interface {
	Create(ctx context.Context, cart *domain.Cart) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Cart, error)
	// Save overwrites the line items of an existing cart.
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Products ProductRepository
	Carts    CartRepository
	Users    UserRepository
	// Close releases the backend's connections.
	Close func(ctx context.Context) error
	// Ping checks the backend is reachable.
	Ping func(ctx context.Context) error
}
