package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/citizen-portal/internal/models"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func strPtr(s string) *string { return &s }

func newUser(email, nationalID string, roleID *int64) models.User {
	return models.User{
		NationalID:    nationalID,
		FirstName:     "Test",
		LastName:      "User",
		Email:         email,
		PasswordHash:  "hash",
		IsActive:      true,
		CapsuleStatus: models.CapsuleNotReady,
		RoleID:        roleID,
	}
}

func TestCreateUserLoadsRole(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	role, err := store.CreateRole(ctx, models.Role{Name: models.RoleCitizen, Description: strPtr("Regular citizen user")})
	require.NoError(t, err)

	user := newUser("a@example.com", "123456789", &role.ID)
	user.City = strPtr("Sofia")
	created, err := store.CreateUser(ctx, user)
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, "a@example.com", created.Email)
	assert.Equal(t, models.CapsuleNotReady, created.CapsuleStatus)
	assert.True(t, created.IsActive)
	assert.False(t, created.CreatedAt.IsZero())
	require.NotNil(t, created.City)
	assert.Equal(t, "Sofia", *created.City)
	require.NotNil(t, created.Role)
	assert.Equal(t, models.RoleCitizen, created.Role.Name)

	byEmail, err := store.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byNID, err := store.FindByNationalID(ctx, "123456789")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byNID.ID)
}

func TestCreateUserWithoutRole(t *testing.T) {
	store := testStore(t)

	created, err := store.CreateUser(context.Background(), newUser("norole@example.com", "111111111", nil))
	require.NoError(t, err)
	assert.Nil(t, created.RoleID)
	assert.Nil(t, created.Role)
}

func TestCreateUserDuplicates(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	_, err := store.CreateUser(ctx, newUser("dup@example.com", "123456789", nil))
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, newUser("dup@example.com", "987654321", nil))
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = store.CreateUser(ctx, newUser("other@example.com", "123456789", nil))
	assert.ErrorIs(t, err, storage.ErrDuplicateNationalID)
}

func TestCreateUserUnknownRole(t *testing.T) {
	missing := int64(42)
	_, err := testStore(t).CreateUser(context.Background(), newUser("x@example.com", "123456789", &missing))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetUserNotFound(t *testing.T) {
	store := testStore(t)

	_, err := store.GetUser(context.Background(), 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListUsersPaging(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := store.CreateUser(ctx, newUser(email, []string{"100000001", "100000002", "100000003"}[i], nil))
		require.NoError(t, err)
	}

	users, err := store.ListUsers(ctx, storage.Page{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "b@example.com", users[0].Email)

	users, err = store.ListUsers(ctx, storage.Page{})
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestRoleAndPermissionUniqueness(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	_, err := store.CreateRole(ctx, models.Role{Name: "admin"})
	require.NoError(t, err)
	_, err = store.CreateRole(ctx, models.Role{Name: "admin"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = store.CreatePermission(ctx, models.Permission{Name: "admin_access"})
	require.NoError(t, err)
	_, err = store.CreatePermission(ctx, models.Permission{Name: "admin_access"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestAssignPermissionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	role, err := store.CreateRole(ctx, models.Role{Name: "citizen"})
	require.NoError(t, err)
	read, err := store.CreatePermission(ctx, models.Permission{Name: "read_public"})
	require.NoError(t, err)
	edit, err := store.CreatePermission(ctx, models.Permission{Name: "edit_profile"})
	require.NoError(t, err)

	require.NoError(t, store.AssignPermission(ctx, role.ID, read.ID))
	require.NoError(t, store.AssignPermission(ctx, role.ID, read.ID))
	require.NoError(t, store.AssignPermission(ctx, role.ID, edit.ID))

	perms, err := store.RolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, "edit_profile", perms[0].Name)
	assert.Equal(t, "read_public", perms[1].Name)

	err = store.AssignPermission(ctx, role.ID, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestItems(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	owner, err := store.CreateUser(ctx, newUser("owner@example.com", "123456789", nil))
	require.NoError(t, err)

	item, err := store.CreateItem(ctx, models.Item{Name: "Permit", Description: strPtr("parking"), IsActive: true, OwnerID: owner.ID})
	require.NoError(t, err)
	assert.NotZero(t, item.ID)

	owned, err := store.ListItemsByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "Permit", owned[0].Name)

	all, err := store.ListItems(ctx, storage.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = store.CreateItem(ctx, models.Item{Name: "Orphan", OwnerID: 999})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
