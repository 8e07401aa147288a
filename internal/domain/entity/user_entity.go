package entity

import (
	"time"
)

// User is an application account resolved from bearer tokens.
// Passwords are stored as bcrypt hashes in PasswordHash.
type User struct {
	ID           int64
	Username     string
	Email        string
	Name         string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user was granted role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
