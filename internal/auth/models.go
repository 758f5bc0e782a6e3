package auth

import (
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var (
	ErrEmailTaken         error = apperr.New(apperr.ErrConflict, "email already registered")
	ErrInvalidCredentials error = apperr.New(apperr.ErrUnauthorized, "invalid email or password")
	ErrInvalidToken       error = apperr.New(apperr.ErrUnauthorized, "invalid or expired token")
	ErrUserNotFound       error = apperr.New(apperr.ErrNotFound, "user not found")
	ErrAdminOnly          error = apperr.New(apperr.ErrForbidden, "admin only")
)

const MinPasswordLen = 8

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the caller identity carried by a session token.
type Principal struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
