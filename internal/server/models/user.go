// Package models defines the server-side data model shared by repositories,
// services, and the transport layer.
package models

import "time"

// Role names are static reference data seeded by the migrations.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account record. PasswordHash is never serialized.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	VerifiedAt   *time.Time `json:"email_verified_at"`
	OldEmail     *string    `json:"-"`
	Roles        []string   `json:"roles,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Verified reports whether the user's email has been confirmed.
func (u *User) Verified() bool {
	return u.VerifiedAt != nil
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}
