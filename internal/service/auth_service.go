package service

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/apperrors"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/auth"
)

// AuthService handles registration, login, and profile lookup
type AuthService struct {
	userRepo   domain.UserRepository
	tokens     *auth.TokenManager
	bcryptCost int
	logger     *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo domain.UserRepository, tokens *auth.TokenManager, bcryptCost int, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = 12
	}

	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a new user account and returns the user with a fresh
// session token. The password hash never leaves the service.
func (s *AuthService) Register(ctx context.Context, username, email, password, name string) (*domain.User, string, error) {
	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, "", apperrors.NewConflict("Email already exists")
	} else if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, "", apperrors.NewInternal("Failed to register user", err)
	}

	if existing, err := s.userRepo.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, "", apperrors.NewConflict("Username already exists")
	} else if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, "", apperrors.NewInternal("Failed to register user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, "", apperrors.NewInternal("Failed to register user", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
	}

	// Create translates unique violations, so a duplicate racing past the
	// checks above still comes back as a conflict.
	if err := s.userRepo.Create(ctx, user); err != nil {
		if apperrors.IsKind(err, apperrors.KindConflict) {
			return nil, "", err
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, "", apperrors.NewInternal("Failed to register user", err)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, "", apperrors.NewInternal("Failed to generate token", err)
	}

	s.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, token, nil
}

// Login authenticates by username or email. Both lookup and password
// failures return the same message so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.User, string, error) {
	user, err := s.userRepo.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			s.logger.Info("login attempt for unknown identifier", slog.String("identifier", identifier))
			return nil, "", apperrors.NewUnauthorized("Invalid credentials")
		}
		return nil, "", apperrors.NewInternal("Failed to log in", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.Int64("user_id", user.ID))
		return nil, "", apperrors.NewUnauthorized("Invalid credentials")
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, "", apperrors.NewInternal("Failed to generate token", err)
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))

	return user, token, nil
}

// Profile returns the user for the given id. A vanished user maps to
// Unauthorized so stale tokens stop working.
func (s *AuthService) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.NewUnauthorized("User not found")
		}
		return nil, apperrors.NewInternal("Failed to load profile", err)
	}
	return user, nil
}
