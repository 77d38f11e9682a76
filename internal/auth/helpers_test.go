package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/citizen-portal/internal/models"
	"github.com/hongminglow/citizen-portal/internal/rbac"
	"github.com/hongminglow/citizen-portal/internal/storage/sqlite"
)

type fixture struct {
	store     *sqlite.Store
	graph     *rbac.Graph
	hasher    *BcryptHasher
	tokens    *TokenManager
	auth      *Authenticator
	registrar *Registrar
}

// newFixture wires the auth services over a temp-file SQLite store.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	graph := rbac.NewGraph(store)
	hasher := NewBcryptHasher(bcrypt.MinCost)
	tokens := NewTokenManager("test-secret", "citizen-portal-test", 30*time.Minute)
	return &fixture{
		store:     store,
		graph:     graph,
		hasher:    hasher,
		tokens:    tokens,
		auth:      NewAuthenticator(store, hasher, tokens),
		registrar: NewRegistrar(store, graph, hasher),
	}
}

func validInput() RegisterInput {
	return RegisterInput{
		Email:      "citizen@example.com",
		Password:   "citizen123",
		FirstName:  "Citizen",
		LastName:   "User",
		NationalID: "123456789",
	}
}

func validUser(email string) models.User {
	return models.User{Email: email}
}
