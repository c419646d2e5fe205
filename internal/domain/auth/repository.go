package auth

import (
	"context"

	"pharmstock/internal/core/id"
)

// UserRepository persists staff accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)

	// UpdateLoginState writes the failed-attempt counter and lockout.
	UpdateLoginState(ctx context.Context, user *User) error
}
