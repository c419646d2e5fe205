// Package auth provides authentication for movement attribution: every
// ledger movement and order transition is stamped with the actor that the
// presented token resolves to.
package auth

import (
	"time"

	"pharmstock/internal/core/id"
)

// User is a staff account.
type User struct {
	ID           id.ID      `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsAdmin      bool       `db:"is_admin" json:"isAdmin"`
	IsActive     bool       `db:"is_active" json:"isActive"`
	FailedLogins int        `db:"failed_logins" json:"-"`
	LockedUntil  *time.Time `db:"locked_until" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// IsLocked reports whether the account is temporarily locked out.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
