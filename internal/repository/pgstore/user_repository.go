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

const userColumns = `id, first_name, last_name, email, age, password_hash, cart_id, role, created_at, updated_at`

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user into the database using parameterized queries
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID.Hex(),
		user.FirstName,
		user.LastName,
		user.Email,
		user.Age,
		user.PasswordHash,
		user.CartID.Hex(),
		string(user.Role),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindByEmail retrieves a user by email using parameterized queries
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID retrieves a user by ID using parameterized queries
func (r *userRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.Hex())
}

func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		id, cartID, role string
		user             = &domain.User{}
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&id,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Age,
		&user.PasswordHash,
		&cartID,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.ID, err = primitive.ObjectIDFromHex(strings.TrimSpace(id)); err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", id, err)
	}
	if user.CartID, err = primitive.ObjectIDFromHex(strings.TrimSpace(cartID)); err != nil {
		return nil, fmt.Errorf("corrupt cart id %q: %w", cartID, err)
	}
	user.Role = domain.Role(role)

	return user, nil
}
