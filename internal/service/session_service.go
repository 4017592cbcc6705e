package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tire-shop/internal/domain"
	"tire-shop/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// DefaultTokenExpiration applies when no expiry is configured.
	DefaultTokenExpiration = 24 * time.Hour

	MinPasswordLength = 6
)

var (
	ErrInvalidCredentials = &domain.Error{Kind: domain.ErrUnauthorized, Msg: "invalid credentials"}
	ErrInvalidToken       = &domain.Error{Kind: domain.ErrUnauthorized, Msg: "invalid or expired token"}
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Age       int
	Password  string
}

// Session is an authenticated user together with its bearer token.
type Session struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// SessionService defines the interface for registration and authentication
type SessionService interface {
	Register(ctx context.Context, input RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	// Authenticate verifies a bearer token and loads its user with the cart joined.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents the JWT claims
type Claims struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// SessionConfig holds the signing settings and the administrator list.
type SessionConfig struct {
	Secret      string
	Expiry      time.Duration
	AdminEmails []string
}

type sessionService struct {
	users    repository.UserRepository
	carts    CartService
	cfg      SessionConfig
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService creates a new instance of SessionService
func NewSessionService(users repository.UserRepository, carts CartService, cfg SessionConfig, logger *zap.Logger) SessionService {
	if cfg.Expiry <= 0 {
		cfg.Expiry = DefaultTokenExpiration
	}
	return &sessionService{
		users:    users,
		carts:    carts,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Register creates the account and its cart. The cart is removed again if the
// user cannot be stored.
func (s *sessionService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	if err := s.checkRegistration(in); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, repository.ErrUserAlreadyExists
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	cart, err := s.carts.Create(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		ID:           domain.NewID(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Age:          in.Age,
		PasswordHash: hash,
		CartID:       cart.ID,
		Role:         s.roleFor(in.Email),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if derr := s.carts.Delete(ctx, cart.ID.Hex()); derr != nil {
			s.logger.Error("Failed to remove cart of failed registration",
				zap.String("cart_id", cart.ID.Hex()),
				zap.Error(derr),
			)
		}
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.Cart = cart

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Session{User: user, Token: token}, nil
}

func (s *sessionService) checkRegistration(in RegisterInput) error {
	var missing []string
	if in.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if in.LastName == "" {
		missing = append(missing, "last_name")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Age == 0 {
		missing = append(missing, "age")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return domain.InvalidArgument("missing required fields: %s", strings.Join(missing, ", "))
	}
	if err := s.validate.Var(in.Email, "email"); err != nil {
		return domain.InvalidArgument("invalid email address")
	}
	if in.Age < domain.MinimumAge {
		return domain.InvalidArgument("you must be at least %d years old", domain.MinimumAge)
	}
	if len(in.Password) < MinPasswordLength {
		return domain.InvalidArgument("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Login authenticates a user and returns a bearer token
func (s *sessionService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.InvalidArgument("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	s.attachCart(ctx, user)
	return &Session{User: user, Token: token}, nil
}

func (s *sessionService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	id, err := domain.ParseID(claims.ID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Unauthorized("user no longer exists")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	s.attachCart(ctx, user)
	return user, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *sessionService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *sessionService) attachCart(ctx context.Context, user *domain.User) {
	if user.CartID.IsZero() {
		return
	}
	cart, err := s.carts.Get(ctx, user.CartID.Hex())
	if err != nil {
		s.logger.Warn("Failed to load user cart",
			zap.String("user_id", user.ID.Hex()),
			zap.Error(err),
		)
		return
	}
	user.Cart = cart
}

func (s *sessionService) roleFor(email string) domain.Role {
	for _, admin := range s.cfg.AdminEmails {
		if normalizeEmail(admin) == email {
			return domain.RoleAdmin
		}
	}
	return domain.RoleUser
}

func (s *sessionService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *sessionService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func (s *sessionService) generateToken(user *domain.User) (string, error) {
	now := s.now()
	claims := &Claims{
		ID:    user.ID.Hex(),
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
