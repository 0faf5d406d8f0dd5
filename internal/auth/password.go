// Package auth implements password-based account management and the JWT
// session tokens that back the login cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"subtrack/internal/core"
	"subtrack/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
)

// UserStore is the persistence surface the authenticator needs.
type UserStore interface {
	CreateUser(ctx context.Context, user core.User) error
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
	GetUserByID(ctx context.Context, id string) (*core.User, error)
}

// Authenticator handles registration and credential checks with bcrypt.
type Authenticator struct {
	store UserStore
}

func NewAuthenticator(store UserStore) *Authenticator {
	return &Authenticator{store: store}
}

// Register creates a new account with a hashed password.
func (a *Authenticator) Register(ctx context.Context, name, email, password string) (*core.User, error) {
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	email = strings.ToLower(strings.TrimSpace(email))

	user := core.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if existing, err := a.store.GetUserByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", user.ID)
	return &user, nil
}

// Authenticate verifies email and password, returning the user if valid.
// The same error is returned for unknown email and wrong password so the
// login form cannot be used to probe for accounts.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
