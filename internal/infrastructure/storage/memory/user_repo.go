package memory

import (
	"context"
	"strings"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/id"
	"pharmstock/internal/domain/auth"
)

// UserRepo is the in-memory auth.UserRepository.
type UserRepo struct {
	store *Store
}

var _ auth.UserRepository = (*UserRepo)(nil)

func NewUserRepo(store *Store) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	return r.store.withWrite(ctx, func() error {
		name := strings.ToLower(user.Username)
		if _, ok := r.store.usersByName[name]; ok {
			return apperror.NewDuplicate("user", "username", user.Username)
		}
		r.store.users[user.ID] = cloneUser(user)
		r.store.usersByName[name] = user.ID
		return nil
	})
}

func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	var found *auth.User
	err := r.store.withRead(ctx, func() error {
		user, ok := r.store.users[userID]
		if !ok {
			return apperror.NewNotFound("user", userID.String())
		}
		found = cloneUser(user)
		return nil
	})
	return found, err
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	var found *auth.User
	err := r.store.withRead(ctx, func() error {
		userID, ok := r.store.usersByName[strings.ToLower(username)]
		if !ok {
			return apperror.NewNotFound("user", username)
		}
		found = cloneUser(r.store.users[userID])
		return nil
	})
	return found, err
}

func (r *UserRepo) UpdateLoginState(ctx context.Context, user *auth.User) error {
	return r.store.withWrite(ctx, func() error {
		existing, ok := r.store.users[user.ID]
		if !ok {
			return apperror.NewNotFound("user", user.ID.String())
		}
		existing.FailedLogins = user.FailedLogins
		existing.LockedUntil = user.LockedUntil
		return nil
	})
}
