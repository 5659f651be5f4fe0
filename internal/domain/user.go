package domain

import (
	"context"
	"time"
)

// User represents a registered account that owns pumps
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"` // Unique username
	Email        string    `json:"email"`    // Unique email address
	PasswordHash string    `json:"-"`        // Bcrypt hashed password (never serialized)
	Name         string    `json:"name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	// GetByUsernameOrEmail matches the identifier against either column so
	// people can log in with their email address.
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*User, error)
	Delete(ctx context.Context, id int64) error
}
