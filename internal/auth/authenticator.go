package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hongminglow/citizen-portal/internal/models"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

// Authenticator checks credentials and converts between users and access tokens.
type Authenticator struct {
	users  storage.UserStore
	hasher Hasher
	tokens *TokenManager

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator wires the user store, password hasher and token manager together.
func NewAuthenticator(users storage.UserStore, hasher Hasher, tokens *TokenManager) *Authenticator {
	return &Authenticator{users: users, hasher: hasher, tokens: tokens}
}

// NormalizeEmail trims and lower-cases an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate returns the user owning email when password matches.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := a.users.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		// keep timing in line with the wrong-password path
		a.hasher.Compare(a.dummy(), password)
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	if !a.hasher.Compare(user.PasswordHash, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken signs an access token for user.
func (a *Authenticator) IssueToken(user models.User) (Token, error) {
	return a.tokens.Generate(user)
}

// VerifyToken validates tokenString and loads the user it was issued for.
func (a *Authenticator) VerifyToken(ctx context.Context, tokenString string) (models.User, error) {
	email, err := a.tokens.Subject(tokenString)
	if err != nil {
		return models.User{}, err
	}
	user, err := a.users.FindByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, ErrUnknownSubject
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find token subject: %w", err)
	}
	return user, nil
}

func (a *Authenticator) dummy() string {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = a.hasher.Hash("dummy-password-for-timing")
	})
	return a.dummyHash
}
