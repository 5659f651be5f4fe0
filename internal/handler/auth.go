package handler

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/apperrors"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/observability/metrics"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/middleware"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/service"
)

// RegisterRequest is the payload for creating an account
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// LoginRequest is the payload for logging in. Username also accepts the
// account's email address.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse pairs a user with a fresh token
type SessionResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// AuthHandler handles registration, login, and session endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{authService: authService, logger: logger}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if err := validateRegistration(req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	user, token, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password, req.Name)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respond(w, http.StatusCreated, "User registered successfully", SessionResponse{User: user, Token: token})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondError(w, h.logger, apperrors.NewValidation("Username and password are required"))
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		metrics.ObserveLogin("failure")
		respondError(w, h.logger, err)
		return
	}

	metrics.ObserveLogin("success")
	respond(w, http.StatusOK, "Login successful", SessionResponse{User: user, Token: token})
}

// Profile handles GET /api/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	user, err := h.authService.Profile(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respond(w, http.StatusOK, "Profile retrieved successfully", map[string]any{"user": user})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so logout is
// an acknowledgement; the client discards its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	h.logger.Info("user logged out", slog.Int64("user_id", userID))

	respond(w, http.StatusOK, "Logout successful", nil)
}

// Verify handles GET /api/auth/verify. Reaching this handler means the
// token already passed validation in the middleware.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())

	respond(w, http.StatusOK, "Token is valid", map[string]any{
		"user": map[string]any{
			"id":       claims.UserID,
			"username": claims.Username,
			"email":    claims.Email,
		},
	})
}

func validateRegistration(req RegisterRequest) error {
	if l := len(req.Username); l < 3 || l > 50 {
		return apperrors.NewValidation("Username must be between 3 and 50 characters")
	}
	if req.Email == "" {
		return apperrors.NewValidation("Email is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return apperrors.NewValidation("Email must be a valid email address")
	}
	if len(req.Password) < 6 {
		return apperrors.NewValidation("Password must be at least 6 characters")
	}
	if len(req.Name) > 100 {
		return apperrors.NewValidation("Name must not exceed 100 characters")
	}
	return nil
}
