package models

import (
	"time"
)

// User defines the account model based on the 'users' table
type User struct {
	ID               int64      `db:"id"`
	Username         string     `db:"username"`
	PasswordHash     string     `db:"password_hash"`
	ResetToken       *string    `db:"reset_token"`
	ResetTokenExpiry *time.Time `db:"reset_token_expiry"`
}

// HasPendingReset reports whether a reset token was issued and not yet consumed
func (u *User) HasPendingReset() bool {
	return u.ResetToken != nil && u.ResetTokenExpiry != nil
}
