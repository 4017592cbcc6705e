package service

import (
	"context"
	"fmt"
	"time"

	"tire-shop/internal/domain"
	"tire-shop/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CartService defines the interface for cart business logic.
//
// Mutations are read-modify-write against the store and are not isolated:
// two concurrent changes to the same cart can lose one of the updates.
type CartService interface {
	Create(ctx context.Context) (*domain.Cart, error)
	Get(ctx context.Context, cartID string) (*domain.Cart, error)
	AddProduct(ctx context.Context, cartID, productID string, quantity int) (*domain.Cart, error)
	RemoveProduct(ctx context.Context, cartID, productID string) (*domain.Cart, error)
	ReplaceProducts(ctx context.Context, cartID string, items []domain.LineItem) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, cartID, productID string, quantity *int) (*domain.Cart, error)
	Clear(ctx context.Context, cartID string) (*domain.Cart, error)
	Delete(ctx context.Context, cartID string) error
}

type cartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewCartService creates a new instance of CartService
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *zap.Logger) CartService {
	return &cartService{
		carts:    carts,
		products: products,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *cartService) Create(ctx context.Context) (*domain.Cart, error) {
	cart := domain.NewCart(s.now())
	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

func (s *cartService) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, cart), nil
}

// AddProduct merges quantity into the line for productID. A quantity of zero means one unit.
func (s *cartService) AddProduct(ctx context.Context, cartID, productID string, quantity int) (*domain.Cart, error) {
	pid, err := domain.ParseID(productID)
	if err != nil {
		return nil, err
	}
	if quantity == 0 {
		quantity = 1
	}
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, func(c *domain.Cart) error {
		return c.Add(pid, quantity)
	})
}

func (s *cartService) RemoveProduct(ctx context.Context, cartID, productID string) (*domain.Cart, error) {
	pid, err := domain.ParseID(productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, func(c *domain.Cart) error {
		c.Remove(pid)
		return nil
	})
}

func (s *cartService) ReplaceProducts(ctx context.Context, cartID string, items []domain.LineItem) (*domain.Cart, error) {
	for _, li := range items {
		if li.ProductID.IsZero() {
			return nil, domain.InvalidArgument("product id is required")
		}
		if err := domain.ValidateQuantity(li.Quantity); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, cartID, func(c *domain.Cart) error {
		return c.Replace(items)
	})
}

func (s *cartService) UpdateQuantity(ctx context.Context, cartID, productID string, quantity *int) (*domain.Cart, error) {
	pid, err := domain.ParseID(productID)
	if err != nil {
		return nil, err
	}
	if quantity == nil {
		return nil, domain.InvalidArgument("quantity is required")
	}
	if err := domain.ValidateQuantity(*quantity); err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, func(c *domain.Cart) error {
		return c.SetQuantity(pid, *quantity)
	})
}

func (s *cartService) Clear(ctx context.Context, cartID string) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
}

// Delete removes the cart entirely. Registration uses it to roll back.
func (s *cartService) Delete(ctx context.Context, cartID string) error {
	id, err := domain.ParseID(cartID)
	if err != nil {
		return err
	}
	if err := s.carts.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (s *cartService) load(ctx context.Context, cartID string) (*domain.Cart, error) {
	id, err := domain.ParseID(cartID)
	if err != nil {
		return nil, err
	}
	cart, err := s.carts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	return cart, nil
}

func (s *cartService) mutate(ctx context.Context, cartID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	cart, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}
	cart.UpdatedAt = s.now()
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	saved, err := s.carts.FindByID(ctx, cart.ID)
	if err != nil {
		s.logger.Warn("Failed to re-read cart after update",
			zap.String("cart_id", cart.ID.Hex()),
			zap.Error(err),
		)
		return cart, nil
	}
	return s.join(ctx, saved), nil
}

// join attaches product documents. On failure the cart is returned with bare references.
func (s *cartService) join(ctx context.Context, cart *domain.Cart) *domain.Cart {
	if len(cart.Products) == 0 {
		return cart
	}
	products, err := s.products.FindByIDs(ctx, cart.ProductIDs())
	if err != nil {
		s.logger.Warn("Failed to join cart products",
			zap.String("cart_id", cart.ID.Hex()),
			zap.Error(err),
		)
		return cart
	}
	byID := make(map[primitive.ObjectID]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	cart.Join(byID)
	return cart
}
