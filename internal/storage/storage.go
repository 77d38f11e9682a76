package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/hongminglow/citizen-portal/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// Field-specific conflicts on the users table. Both satisfy errors.Is(err, ErrAlreadyExists).
var (
	ErrDuplicateEmail      = fmt.Errorf("%w: email", ErrAlreadyExists)
	ErrDuplicateNationalID = fmt.Errorf("%w: national id", ErrAlreadyExists)
)

// DefaultLimit and MaxLimit bound list queries.
const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// Page is an offset/limit window over a list query.
type Page struct {
	Skip  int
	Limit int
}

// Normalize clamps the window to sane bounds.
func (p Page) Normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 || p.Limit > MaxLimit {
		p.Limit = DefaultLimit
	}
	return p
}

// UserStore captures persistence operations on users.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByNationalID(ctx context.Context, nationalID string) (models.User, error)
	ListUsers(ctx context.Context, page Page) ([]models.User, error)
}

// RoleStore captures persistence for roles, permissions and their grants.
type RoleStore interface {
	CreateRole(ctx context.Context, role models.Role) (models.Role, error)
	GetRole(ctx context.Context, id int64) (models.Role, error)
	FindRoleByName(ctx context.Context, name string) (models.Role, error)
	ListRoles(ctx context.Context, page Page) ([]models.Role, error)

	CreatePermission(ctx context.Context, perm models.Permission) (models.Permission, error)
	GetPermission(ctx context.Context, id int64) (models.Permission, error)
	FindPermissionByName(ctx context.Context, name string) (models.Permission, error)
	ListPermissions(ctx context.Context, page Page) ([]models.Permission, error)

	// AssignPermission grants permissionID to roleID. Granting twice is a no-op.
	AssignPermission(ctx context.Context, roleID, permissionID int64) error
	RolePermissions(ctx context.Context, roleID int64) ([]models.Permission, error)
}

// ItemStore captures persistence for user-owned items.
type ItemStore interface {
	CreateItem(ctx context.Context, item models.Item) (models.Item, error)
	ListItems(ctx context.Context, page Page) ([]models.Item, error)
	ListItemsByOwner(ctx context.Context, ownerID int64) ([]models.Item, error)
}

// Store is the full persistence surface used by the server.
type Store interface {
	UserStore
	RoleStore
	ItemStore
	Ping(ctx context.Context) error
	Close()
}
