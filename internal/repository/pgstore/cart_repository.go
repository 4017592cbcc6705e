package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tire-shop/internal/domain"
	"tire-shop/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) repository.CartRepository {
	return &cartRepository{db: db}
}

// Create inserts an empty cart row and any initial line items
func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO carts (id, created_at, updated_at) VALUES ($1, $2, $3)`,
		cart.ID.Hex(), cart.CreatedAt, cart.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}

	if err := insertItems(ctx, tx, cart); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cart: %w", err)
	}
	return nil
}

// FindByID loads a cart and its line items in insertion order
func (r *cartRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Cart, error) {
	cart := &domain.Cart{ID: id, Products: []domain.LineItem{}}

	err := r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM carts WHERE id = $1`, id.Hex(),
	).Scan(&cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart by ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY position
	`, id.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pid string
			li  domain.LineItem
		)
		if err := rows.Scan(&pid, &li.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		if li.ProductID, err = primitive.ObjectIDFromHex(strings.TrimSpace(pid)); err != nil {
			return nil, fmt.Errorf("corrupt product id %q in cart %s: %w", pid, id.Hex(), err)
		}
		cart.Products = append(cart.Products, li)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return cart, nil
}

// Save replaces the stored line items with the ones held by cart
func (r *cartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE carts SET updated_at = $2 WHERE id = $1`, cart.ID.Hex(), cart.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrCartNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID.Hex()); err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}

	if err := insertItems(ctx, tx, cart); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cart: %w", err)
	}
	return nil
}

// Delete removes a cart; its items go with it through ON DELETE CASCADE
func (r *cartRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, id.Hex())
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repository.ErrCartNotFound
	}

	return nil
}

func insertItems(ctx context.Context, tx *sql.Tx, cart *domain.Cart) error {
	for i, li := range cart.Products {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cart_items (cart_id, product_id, quantity, position) VALUES ($1, $2, $3, $4)`,
			cart.ID.Hex(), li.ProductID.Hex(), li.Quantity, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cart item: %w", err)
		}
	}
	return nil
}
