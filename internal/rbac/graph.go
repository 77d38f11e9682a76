// Package rbac resolves what a user may do from the permissions granted to their role.
// The mapping is flat: a user has at most one role and roles do not inherit.
package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/hongminglow/citizen-portal/internal/models"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

// Graph manages roles, permissions and the grants between them.
type Graph struct {
	store storage.RoleStore
}

// NewGraph returns a Graph over store.
func NewGraph(store storage.RoleStore) *Graph {
	return &Graph{store: store}
}

// EnsureRole returns the role called name, creating it when missing.
func (g *Graph) EnsureRole(ctx context.Context, name, description string) (models.Role, error) {
	role, err := g.store.FindRoleByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Role{}, fmt.Errorf("find role %q: %w", name, err)
	}

	role, err = g.store.CreateRole(ctx, models.Role{Name: name, Description: optional(description)})
	if errors.Is(err, storage.ErrAlreadyExists) {
		// lost a create race
		return g.store.FindRoleByName(ctx, name)
	}
	if err != nil {
		return models.Role{}, fmt.Errorf("create role %q: %w", name, err)
	}
	return role, nil
}

// EnsurePermission returns the permission called name, creating it when missing.
func (g *Graph) EnsurePermission(ctx context.Context, name, description string) (models.Permission, error) {
	perm, err := g.store.FindPermissionByName(ctx, name)
	if err == nil {
		return perm, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Permission{}, fmt.Errorf("find permission %q: %w", name, err)
	}

	perm, err = g.store.CreatePermission(ctx, models.Permission{Name: name, Description: optional(description)})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return g.store.FindPermissionByName(ctx, name)
	}
	if err != nil {
		return models.Permission{}, fmt.Errorf("create permission %q: %w", name, err)
	}
	return perm, nil
}

// AssignPermission grants permissionID to roleID. Repeating a grant is a no-op.
// It returns storage.ErrNotFound when either side does not exist.
func (g *Graph) AssignPermission(ctx context.Context, roleID, permissionID int64) error {
	if _, err := g.store.GetRole(ctx, roleID); err != nil {
		return fmt.Errorf("role %d: %w", roleID, err)
	}
	if _, err := g.store.GetPermission(ctx, permissionID); err != nil {
		return fmt.Errorf("permission %d: %w", permissionID, err)
	}
	if err := g.store.AssignPermission(ctx, roleID, permissionID); err != nil {
		return fmt.Errorf("assign permission: %w", err)
	}
	return nil
}

// PermissionsOf lists the permissions a user holds through their role.
func (g *Graph) PermissionsOf(ctx context.Context, user models.User) ([]models.Permission, error) {
	if user.RoleID == nil {
		return []models.Permission{}, nil
	}
	perms, err := g.store.RolePermissions(ctx, *user.RoleID)
	if err != nil {
		return nil, fmt.Errorf("permissions of user %d: %w", user.ID, err)
	}
	return perms, nil
}

// HasPermission reports whether the user's role grants the named permission.
func (g *Graph) HasPermission(ctx context.Context, user models.User, name string) (bool, error) {
	perms, err := g.PermissionsOf(ctx, user)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// RoleWithPermissions loads a role and fills in its granted permissions.
func (g *Graph) RoleWithPermissions(ctx context.Context, roleID int64) (models.Role, error) {
	role, err := g.store.GetRole(ctx, roleID)
	if err != nil {
		return models.Role{}, err
	}
	role.Permissions, err = g.store.RolePermissions(ctx, roleID)
	if err != nil {
		return models.Role{}, fmt.Errorf("permissions of role %d: %w", roleID, err)
	}
	return role, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
