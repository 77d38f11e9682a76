package seed

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/citizen-portal/internal/auth"
	"github.com/hongminglow/citizen-portal/internal/models"
	"github.com/hongminglow/citizen-portal/internal/rbac"
	"github.com/hongminglow/citizen-portal/internal/storage/sqlite"
)

func newSeeder(t *testing.T) (*Seeder, *sqlite.Store, *rbac.Graph, *auth.BcryptHasher) {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	graph := rbac.NewGraph(store)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSeeder(store, graph, auth.NewRegistrar(store, graph, hasher), logger), store, graph, hasher
}

func TestDefaultSeedParses(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)

	assert.Len(t, f.Permissions, 6)
	assert.Len(t, f.Roles, 4)
	require.Len(t, f.Users, 2)
	assert.Equal(t, "000000000", f.Users[0].NationalID)
}

func TestApplyDefault(t *testing.T) {
	ctx := context.Background()
	s, store, graph, hasher := newSeeder(t)

	f, err := Default()
	require.NoError(t, err)

	res, err := s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Roles: 4, Permissions: 6, Users: 2}, res)

	citizen, err := store.FindByEmail(ctx, "citizen@example.com")
	require.NoError(t, err)
	assert.True(t, hasher.Compare(citizen.PasswordHash, "citizen123"))
	require.NotNil(t, citizen.Role)
	assert.Equal(t, models.RoleCitizen, citizen.Role.Name)
	require.NotNil(t, citizen.DateOfBirth)
	assert.Equal(t, time.Date(1985, 5, 15, 0, 0, 0, 0, time.UTC), citizen.DateOfBirth.UTC())

	perms, err := graph.PermissionsOf(ctx, citizen)
	require.NoError(t, err)
	var names []string
	for _, p := range perms {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{models.PermReadPublic, models.PermEditProfile, models.PermSubmitRequest}, names)

	admin, err := store.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	ok, err := graph.HasPermission(ctx, admin, models.PermAdminAccess)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = graph.HasPermission(ctx, admin, models.PermSubmitRequest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyTwiceCreatesNothing(t *testing.T) {
	ctx := context.Background()
	s, store, _, _ := newSeeder(t)

	f, err := Default()
	require.NoError(t, err)

	_, err = s.Apply(ctx, f)
	require.NoError(t, err)
	res, err := s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	role, err := store.FindRoleByName(ctx, models.RoleLocalAuthority)
	require.NoError(t, err)
	perms, err := store.RolePermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, perms, 4)
}

func TestSeededCitizenCanLogIn(t *testing.T) {
	ctx := context.Background()
	s, store, _, hasher := newSeeder(t)

	f, err := Default()
	require.NoError(t, err)
	_, err = s.Apply(ctx, f)
	require.NoError(t, err)

	authn := auth.NewAuthenticator(store, hasher, auth.NewTokenManager("secret", "portal", 30*time.Minute))
	user, err := authn.Authenticate(ctx, "citizen@example.com", "citizen123")
	require.NoError(t, err)

	token, err := authn.IssueToken(user)
	require.NoError(t, err)
	verified, err := authn.VerifyToken(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "citizen@example.com", verified.Email)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
permissions:
  - name: read_public
roles:
  - name: viewer
    permissions: [read_public]
`), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Roles, 1)
	assert.Equal(t, []string{"read_public"}, f.Roles[0].Permissions)
	assert.Empty(t, f.Users)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyUnknownGrant(t *testing.T) {
	s, _, _, _ := newSeeder(t)

	_, err := s.Apply(context.Background(), File{
		Roles: []Role{{Name: "viewer", Permissions: []string{"does_not_exist"}}},
	})
	assert.Error(t, err)
}
