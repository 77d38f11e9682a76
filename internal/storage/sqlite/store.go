// Package sqlite is an embedded storage backend for local development and tests.
// It mirrors the Postgres schema closely enough that the same service code runs on both.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/hongminglow/citizen-portal/internal/models"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

var _ storage.Store = (*Store)(nil)

const (
	dirPermissions    = 0750
	connectionTimeout = 5 * time.Second
	busyTimeoutMillis = 5000
)

// Store provides SQLite-backed persistence for the portal.
type Store struct {
	db *sql.DB
}

// Open creates the database file if needed, applies the schema and returns a Store.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on&_journal_mode=WAL", path, busyTimeoutMillis)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("verify database connection: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS permissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS role_permission (
			role_id INTEGER NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			permission_id INTEGER NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
			PRIMARY KEY (role_id, permission_id)
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			national_id TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			city TEXT,
			neighborhood TEXT,
			street TEXT,
			building TEXT,
			entrance TEXT,
			postal_code TEXT,
			date_of_birth TIMESTAMP,
			gender TEXT,
			phone_number TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			capsule_status TEXT NOT NULL DEFAULT 'not_ready',
			role_id INTEGER REFERENCES roles(id),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS items_owner_id_idx ON items (owner_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

const selectUser = `
	SELECT u.id, u.national_id, u.first_name, u.last_name, u.email, u.password_hash,
		u.city, u.neighborhood, u.street, u.building, u.entrance, u.postal_code,
		u.date_of_birth, u.gender, u.phone_number, u.is_active, u.capsule_status,
		u.role_id, u.created_at, r.id, r.name, r.description
	FROM users u
	LEFT JOIN roles r ON u.role_id = r.id`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
	INSERT INTO users (
		national_id, first_name, last_name, email, password_hash,
		city, neighborhood, street, building, entrance, postal_code,
		date_of_birth, gender, phone_number, is_active, capsule_status, role_id
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	res, err := s.db.ExecContext(ctx, query,
		user.NationalID, user.FirstName, user.LastName, user.Email, user.PasswordHash,
		user.City, user.Neighborhood, user.Street, user.Building, user.Entrance, user.PostalCode,
		user.DateOfBirth, user.Gender, user.PhoneNumber, user.IsActive, string(user.CapsuleStatus), user.RoleID,
	)
	if err != nil {
		return models.User{}, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("read inserted user id: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE u.id = ?;`, id))
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE u.email = ?;`, email))
}

// FindByNationalID fetches a user by national id.
func (s *Store) FindByNationalID(ctx context.Context, nationalID string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE u.national_id = ?;`, nationalID))
}

// ListUsers returns a page of users ordered by id.
func (s *Store) ListUsers(ctx context.Context, page storage.Page) ([]models.User, error) {
	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, selectUser+` ORDER BY u.id LIMIT ? OFFSET ?;`, page.Limit, page.Skip)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateRole inserts a role.
func (s *Store) CreateRole(ctx context.Context, role models.Role) (models.Role, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO roles (name, description) VALUES (?, ?);`, role.Name, role.Description)
	if err != nil {
		return models.Role{}, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Role{}, fmt.Errorf("read inserted role id: %w", err)
	}
	return s.GetRole(ctx, id)
}

// GetRole fetches a role by id.
func (s *Store) GetRole(ctx context.Context, id int64) (models.Role, error) {
	var out models.Role
	err := s.db.QueryRowContext(ctx, `SELECT id, name, description FROM roles WHERE id = ?;`, id).
		Scan(&out.ID, &out.Name, &out.Description)
	if err != nil {
		return models.Role{}, translate(err)
	}
	return out, nil
}

// FindRoleByName fetches a role by its unique name.
func (s *Store) FindRoleByName(ctx context.Context, name string) (models.Role, error) {
	var out models.Role
	err := s.db.QueryRowContext(ctx, `SELECT id, name, description FROM roles WHERE name = ?;`, name).
		Scan(&out.ID, &out.Name, &out.Description)
	if err != nil {
		return models.Role{}, translate(err)
	}
	return out, nil
}

// ListRoles returns a page of roles ordered by id.
func (s *Store) ListRoles(ctx context.Context, page storage.Page) ([]models.Role, error) {
	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description FROM roles ORDER BY id LIMIT ? OFFSET ?;`, page.Limit, page.Skip)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := []models.Role{}
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// CreatePermission inserts a permission.
func (s *Store) CreatePermission(ctx context.Context, perm models.Permission) (models.Permission, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO permissions (name, description) VALUES (?, ?);`, perm.Name, perm.Description)
	if err != nil {
		return models.Permission{}, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Permission{}, fmt.Errorf("read inserted permission id: %w", err)
	}
	return s.GetPermission(ctx, id)
}

// GetPermission fetches a permission by id.
func (s *Store) GetPermission(ctx context.Context, id int64) (models.Permission, error) {
	var out models.Permission
	err := s.db.QueryRowContext(ctx, `SELECT id, name, description FROM permissions WHERE id = ?;`, id).
		Scan(&out.ID, &out.Name, &out.Description)
	if err != nil {
		return models.Permission{}, translate(err)
	}
	return out, nil
}

// FindPermissionByName fetches a permission by its unique name.
func (s *Store) FindPermissionByName(ctx context.Context, name string) (models.Permission, error) {
	var out models.Permission
	err := s.db.QueryRowContext(ctx, `SELECT id, name, description FROM permissions WHERE name = ?;`, name).
		Scan(&out.ID, &out.Name, &out.Description)
	if err != nil {
		return models.Permission{}, translate(err)
	}
	return out, nil
}

// ListPermissions returns a page of permissions ordered by id.
func (s *Store) ListPermissions(ctx context.Context, page storage.Page) ([]models.Permission, error) {
	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description FROM permissions ORDER BY id LIMIT ? OFFSET ?;`, page.Limit, page.Skip)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// AssignPermission grants a permission to a role; an existing grant is left untouched.
func (s *Store) AssignPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO role_permission (role_id, permission_id) VALUES (?, ?);`, roleID, permissionID)
	if err != nil {
		return translate(err)
	}
	return nil
}

// RolePermissions lists the permissions granted to a role, ordered by name.
func (s *Store) RolePermissions(ctx context.Context, roleID int64) ([]models.Permission, error) {
	const query = `
	SELECT p.id, p.name, p.description
	FROM role_permission rp
	JOIN permissions p ON rp.permission_id = p.id
	WHERE rp.role_id = ?
	ORDER BY p.name;`
	rows, err := s.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("role permissions: %w", err)
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// CreateItem inserts an item for an existing owner.
func (s *Store) CreateItem(ctx context.Context, item models.Item) (models.Item, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items (name, description, is_active, owner_id) VALUES (?, ?, ?, ?);`,
		item.Name, item.Description, item.IsActive, item.OwnerID,
	)
	if err != nil {
		return models.Item{}, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Item{}, fmt.Errorf("read inserted item id: %w", err)
	}
	item.ID = id
	return item, nil
}

// ListItems returns a page of items ordered by id.
func (s *Store) ListItems(ctx context.Context, page storage.Page) ([]models.Item, error) {
	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, is_active, owner_id FROM items ORDER BY id LIMIT ? OFFSET ?;`,
		page.Limit, page.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ListItemsByOwner returns every item owned by ownerID.
func (s *Store) ListItemsByOwner(ctx context.Context, ownerID int64) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, is_active, owner_id FROM items WHERE owner_id = ? ORDER BY id;`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items by owner: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectPermissions(rows *sql.Rows) ([]models.Permission, error) {
	perms := []models.Permission{}
	for rows.Next() {
		var perm models.Permission
		if err := rows.Scan(&perm.ID, &perm.Name, &perm.Description); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

func collectItems(rows *sql.Rows) ([]models.Item, error) {
	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.IsActive, &item.OwnerID); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (models.User, error) {
	var (
		user      models.User
		status    string
		roleID    sql.NullInt64
		roleName  sql.NullString
		roleDescr *string
	)
	err := row.Scan(
		&user.ID, &user.NationalID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash,
		&user.City, &user.Neighborhood, &user.Street, &user.Building, &user.Entrance, &user.PostalCode,
		&user.DateOfBirth, &user.Gender, &user.PhoneNumber, &user.IsActive, &status,
		&user.RoleID, &user.CreatedAt, &roleID, &roleName, &roleDescr,
	)
	if err != nil {
		return models.User{}, translate(err)
	}
	user.CapsuleStatus = models.CapsuleStatus(status)
	if roleID.Valid && roleName.Valid {
		user.Role = &models.Role{ID: roleID.Int64, Name: roleName.String, Description: roleDescr}
	}
	return user, nil
}

// translate maps database/sql and SQLite errors onto the storage sentinels.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			// message format: "UNIQUE constraint failed: users.email"
			msg := sqlErr.Error()
			switch {
			case strings.Contains(msg, "users.email"):
				return storage.ErrDuplicateEmail
			case strings.Contains(msg, "users.national_id"):
				return storage.ErrDuplicateNationalID
			}
			return storage.ErrAlreadyExists
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %s", storage.ErrNotFound, sqlErr.Error())
		}
	}
	return err
}
