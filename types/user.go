package types

import "time"

// User represents an account in the system.
// It contains identity, display attributes, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user, assigned by the store.
	ID int `json:"id" db:"id"`

	// Email is the unique address the user logs in with.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// City is a free-form display attribute.
	City string `json:"city" db:"city"`

	// Role indicates the user's authorization level or role
	// within the system (e.g., "admin", "user").
	Role string `json:"role" db:"role"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
