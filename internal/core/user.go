package core

import (
	"errors"
	"strings"
	"time"
)

// User is an account owning subscriptions. Passwords are stored only as
// bcrypt hashes; the auth package is the single writer of PasswordHash.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

var (
	ErrEmptyUserName = errors.New("name is required")
	ErrInvalidEmail  = errors.New("invalid email address")
)

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyUserName
	}
	if !validEmail(u.Email) {
		return ErrInvalidEmail
	}
	return nil
}

// validEmail does a minimal shape check; real verification happens when
// mail actually gets delivered.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t\n")
}
