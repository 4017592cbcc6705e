package transport

import (
	"encoding/json"
	"net/http"

	"tire-shop/internal/domain"
	"tire-shop/internal/middleware"
	"tire-shop/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload. A role sent by
// the client is ignored.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
	Password  string `json:"password"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse is the success envelope of the session endpoints.
type SessionResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type userData struct {
	User *domain.User `json:"user"`
}

// SessionHandler handles HTTP requests for registration and login
type SessionHandler struct {
	sessions service.SessionService
	logger   *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions service.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// RegisterRoutes registers all session routes
func (h *SessionHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.With(authMiddleware).Get("/current", h.Current)
	})
}

// Register handles user registration
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Registration decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.sessions.Register(r.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Age:       req.Age,
		Password:  req.Password,
	})
	if err != nil {
		h.logger.Debug("Registration failed", zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("User registered successfully",
		zap.String("user_id", session.User.ID.Hex()),
		zap.String("role", string(session.User.Role)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, SessionResponse{
		Status:  "success",
		Message: "user registered",
		Data:    session,
	})
}

// Login handles user authentication
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		middleware.RespondWithRequestError(w, err)
		return
	}

	session, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("User logged in successfully", zap.String("user_id", session.User.ID.Hex()))
	middleware.RespondWithJSON(w, http.StatusOK, SessionResponse{
		Status:  "success",
		Message: "login successful",
		Data:    session,
	})
}

// Current echoes the user attached by the auth middleware.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, SessionResponse{
		Status:  "success",
		Message: "current user",
		Data:    userData{User: user},
	})
}

// Logout is advisory: tokens are stateless, so the client just drops its copy.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, SessionResponse{
		Status:  "success",
		Message: "logged out",
	})
}
