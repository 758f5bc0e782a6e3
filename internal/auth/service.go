package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

type Users interface {
	Insert(ctx context.Context, u User) (User, error)
	ByEmail(ctx context.Context, email string) (User, error)
	ByID(ctx context.Context, id string) (User, error)
	SetRole(ctx context.Context, email string, role Role) error
}

type Service struct {
	Users       Users
	Secret      []byte
	TTL         time.Duration
	AdminEmails []string

	// Cost defaults to bcrypt.DefaultCost.
	Cost int
	now  func() time.Time
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return User{}, apperr.Invalidf("a valid email is required")
	}
	if len(password) < MinPasswordLen {
		return User{}, apperr.Invalidf("password must be at least %d characters", MinPasswordLen)
	}
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	role := RoleCustomer
	if slices.Contains(s.AdminEmails, email) {
		role = RoleAdmin
	}
	return s.Users.Insert(ctx, User{ID: uuid.NewString(), Email: email, PasswordHash: string(hash), Role: role})
}

// Login checks the credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, User, error) {
	u, err := s.Users.ByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return "", User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", User{}, ErrInvalidCredentials
	}
	tok, err := s.Issue(Principal{UserID: u.ID, Role: u.Role})
	if err != nil {
		return "", User{}, err
	}
	return tok, u, nil
}

func (s *Service) Issue(p Principal) (string, error) {
	now := s.clock()
	c := claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.Secret)
}

func (s *Service) ParseToken(token string) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock),
	)
	if err != nil || c.Subject == "" {
		return Principal{}, ErrInvalidToken
	}
	role := Role(c.Role)
	if role != RoleAdmin {
		role = RoleCustomer
	}
	return Principal{UserID: c.Subject, Role: role}, nil
}

func (s *Service) Me(ctx context.Context, p Principal) (User, error) {
	return s.Users.ByID(ctx, p.UserID)
}

// Promote grants the admin role to an existing user.
func (s *Service) Promote(ctx context.Context, email string) error {
	return s.Users.SetRole(ctx, normalizeEmail(email), RoleAdmin)
}
