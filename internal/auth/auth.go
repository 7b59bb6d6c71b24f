// Package auth resolves request credentials to a user.
package auth

import (
	"context"
	"errors"

	"taskboard/internal/models"
	"taskboard/pkg/crypto"
)

// Authenticator turns a username/password pair into the matching user or
// models.ErrInvalidCredentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type PasswordFinder interface {
	GetUserByPassword(ctx context.Context, hashed string) (*models.User, error)
}

// PasswordLookup treats the password as the only credential: it is run
// through crypto.HashPassword and looked up verbatim. The username is
// ignored.
type PasswordLookup struct {
	users PasswordFinder
}

func NewPasswordLookup(users PasswordFinder) *PasswordLookup {
	return &PasswordLookup{users: users}
}

func (p *PasswordLookup) Authenticate(ctx context.Context, _, password string) (*models.User, error) {
	user, err := p.users.GetUserByPassword(ctx, crypto.HashPassword(password))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
