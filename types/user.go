package types

import "time"

// Roles recognised by the API. Role gates admin-only endpoints; everything
// else is scoped to the authenticated user regardless of role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the system.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address, stored lowercased and unique.
	Email string `json:"email" db:"email"`

	// FirstName and LastName are optional display names.
	FirstName string `json:"firstName,omitempty" db:"first_name"`
	LastName  string `json:"lastName,omitempty" db:"last_name"`

	// AvatarURL points at the user's profile picture in object storage.
	AvatarURL string `json:"avatarUrl,omitempty" db:"avatar_url"`

	// Role indicates the user's authorization level ("admin" or "user").
	Role string `json:"role" db:"role"`

	// IsActive indicates whether the account may authenticate. Tokens held
	// by a deactivated user stop working on their next request.
	IsActive bool `json:"isActive" db:"is_active"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// LastLoginAt is the timestamp of the most recent successful login.
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
