package dto

import (
	"time"

	"pharmstock/internal/domain/auth"
)

// --- Request DTOs ---

// LoginRequest for staff login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest for creating a staff account.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=8"`
	IsAdmin  bool   `json:"isAdmin"`
}

// --- Response DTOs ---

// TokenResponse carries the issued access token.
type TokenResponse struct {
	AccessToken string        `json:"accessToken"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	TokenType   string        `json:"tokenType"`
	User        *UserResponse `json:"user"`
}

// FromLoginResult creates response from the domain login result.
func FromLoginResult(res *auth.LoginResult) *TokenResponse {
	return &TokenResponse{
		AccessToken: res.Token,
		ExpiresAt:   res.ExpiresAt,
		TokenType:   "Bearer",
		User:        FromUser(res.User),
	}
}

// UserResponse represents a staff account in API responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromUser creates response from the domain user.
func FromUser(u *auth.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
