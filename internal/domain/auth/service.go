package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/core/tx"
	"pharmstock/pkg/logger"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	MaxLoginAttempts  int
	LockDuration      time.Duration
	PasswordMinLength int
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxLoginAttempts:  5,
		LockDuration:      15 * time.Minute,
		PasswordMinLength: 8,
	}
}

// Service provides login and account management.
type Service struct {
	users      UserRepository
	txManager  tx.Manager
	jwtService *JWTService
	config     ServiceConfig
}

// NewService creates a new auth service.
func NewService(users UserRepository, txManager tx.Manager, jwtService *JWTService, config ServiceConfig) *Service {
	return &Service{
		users:      users,
		txManager:  txManager,
		jwtService: jwtService,
		config:     config,
	}
}

// LoginResult carries the issued token.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// Login verifies credentials and issues an access token. Failed attempts
// count toward a temporary lockout.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}

	now := time.Now().UTC()
	if !user.IsActive {
		return nil, apperror.NewUnauthorized("account disabled")
	}
	if user.IsLocked(now) {
		return nil, apperror.NewUnauthorized("account temporarily locked")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		user.FailedLogins++
		if user.FailedLogins >= s.config.MaxLoginAttempts {
			lockedUntil := now.Add(s.config.LockDuration)
			user.LockedUntil = &lockedUntil
			user.FailedLogins = 0
			logger.Warn(ctx, "account locked after repeated failures", "username", user.Username)
		}
		if updateErr := s.users.UpdateLoginState(ctx, user); updateErr != nil {
			logger.Error(ctx, "persist login state failed", "error", updateErr)
		}
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	if user.FailedLogins > 0 || user.LockedUntil != nil {
		user.FailedLogins = 0
		user.LockedUntil = nil
		if err := s.users.UpdateLoginState(ctx, user); err != nil {
			logger.Error(ctx, "reset login state failed", "error", err)
		}
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	logger.Info(ctx, "user logged in", "username", user.Username)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Register creates a staff account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password string, isAdmin bool) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.NewValidation("username is required")
	}
	if len(password) < s.config.PasswordMinLength {
		return nil, apperror.NewValidation(fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	user := &User{
		ID:           id.New(),
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.users.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "user registered", "username", username, "admin", isAdmin)
	return user, nil
}

// ValidateToken resolves a bearer token to an actor.
func (s *Service) ValidateToken(tokenString string) (*User, error) {
	actor, err := s.jwtService.ValidateToken(tokenString)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid or expired token")
	}
	userID, err := id.Parse(actor.UserID)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid token subject")
	}
	return &User{ID: userID, Username: actor.Username, IsAdmin: actor.IsAdmin}, nil
}
