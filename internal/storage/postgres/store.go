package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hongminglow/citizen-portal/internal/models"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Store provides Postgres-backed persistence for the portal.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new Store and runs migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS roles (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(50) NOT NULL CONSTRAINT roles_name_unique UNIQUE,
			description TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS permissions (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL CONSTRAINT permissions_name_unique UNIQUE,
			description TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS role_permission (
			role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			permission_id BIGINT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
			PRIMARY KEY (role_id, permission_id)
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			national_id VARCHAR(20) NOT NULL CONSTRAINT users_national_id_unique UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email VARCHAR(100) NOT NULL CONSTRAINT users_email_unique UNIQUE,
			password_hash TEXT NOT NULL,
			city VARCHAR(100),
			neighborhood VARCHAR(100),
			street VARCHAR(100),
			building VARCHAR(20),
			entrance VARCHAR(20),
			postal_code VARCHAR(20),
			date_of_birth TIMESTAMPTZ,
			gender VARCHAR(20),
			phone_number VARCHAR(20),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			capsule_status VARCHAR(20) NOT NULL DEFAULT 'not_ready',
			role_id BIGINT REFERENCES roles(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS items_owner_id_idx ON items (owner_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

const userColumns = `
	u.id, u.national_id, u.first_name, u.last_name, u.email, u.password_hash,
	u.city, u.neighborhood, u.street, u.building, u.entrance, u.postal_code,
	u.date_of_birth, u.gender, u.phone_number, u.is_active, u.capsule_status,
	u.role_id, u.created_at, r.id, r.name, r.description`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		WITH u AS (
			INSERT INTO users (
				national_id, first_name, last_name, email, password_hash,
				city, neighborhood, street, building, entrance, postal_code,
				date_of_birth, gender, phone_number, is_active, capsule_status, role_id
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING *
		)
		SELECT ` + userColumns + `
		FROM u
		LEFT JOIN roles r ON u.role_id = r.id;
		`
	row := s.pool.QueryRow(ctx, query,
		user.NationalID, user.FirstName, user.LastName, user.Email, user.PasswordHash,
		user.City, user.Neighborhood, user.Street, user.Building, user.Entrance, user.PostalCode,
		user.DateOfBirth, user.Gender, user.PhoneNumber, user.IsActive, string(user.CapsuleStatus), user.RoleID,
	)
	created, err := scanUser(row)
	if err != nil {
		return models.User{}, translate(err)
	}
	return created, nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	const query = `SELECT ` + userColumns + `
	FROM users u
	LEFT JOIN roles r ON u.role_id = r.id
	WHERE u.id = $1;
	`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT ` + userColumns + `
	FROM users u
	LEFT JOIN roles r ON u.role_id = r.id
	WHERE u.email = $1;
	`
	return scanUser(s.pool.QueryRow(ctx, query, email))
}

// FindByNationalID fetches a user by national id.
func (s *Store) FindByNationalID(ctx context.Context, nationalID string) (models.User, error) {
	const query = `SELECT ` + userColumns + `
	FROM users u
	LEFT JOIN roles r ON u.role_id = r.id
	WHERE u.national_id = $1;
	`
	return scanUser(s.pool.QueryRow(ctx, query, nationalID))
}

// ListUsers returns a page of users ordered by id.
func (s *Store) ListUsers(ctx context.Context, page storage.Page) ([]models.User, error) {
	page = page.Normalize()
	const query = `SELECT ` + userColumns + `
	FROM users u
	LEFT JOIN roles r ON u.role_id = r.id
	ORDER BY u.id
	OFFSET $1 LIMIT $2;
	`
	rows, err := s.pool.Query(ctx, query, page.Skip, page.Limit)
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
	const query = `INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING id, name, description;`
	var out models.Role
	if err := s.pool.QueryRow(ctx, query, role.Name, role.Description).Scan(&out.ID, &out.Name, &out.Description); err != nil {
		return models.Role{}, translate(err)
	}
	return out, nil
}

// GetRole fetches a role by id.
func (s *Store) GetRole(ctx context.Context, id int64) (models.Role, error) {
	const query = `SELECT id, name, description FROM roles WHERE id = $1;`
	var out models.Role
	if err := s.pool.QueryRow(ctx, query, id).Scan(&out.ID, &out.Name, &out.Description); err != nil {
		return models.Role{}, translate(err)
	}
	return out, nil
}

// FindRoleByName fetches a role by its unique name.
func (s *Store) FindRoleByName(ctx context.Context, name string) (models.Role, error) {
	const query = `SELECT id, name, description FROM roles WHERE name = $1;`
	var out models.Role
	if err := s.pool.QueryRow(ctx, query, name).Scan(&out.ID, &out.Name, &out.Description); err != nil {
		return models.Role{}, translate(err)
	}
	return out, nil
}

// ListRoles returns a page of roles ordered by id.
func (s *Store) ListRoles(ctx context.Context, page storage.Page) ([]models.Role, error) {
	page = page.Normalize()
	const query = `SELECT id, name, description FROM roles ORDER BY id OFFSET $1 LIMIT $2;`
	rows, err := s.pool.Query(ctx, query, page.Skip, page.Limit)
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
	const query = `INSERT INTO permissions (name, description) VALUES ($1, $2) RETURNING id, name, description;`
	var out models.Permission
	if err := s.pool.QueryRow(ctx, query, perm.Name, perm.Description).Scan(&out.ID, &out.Name, &out.Description); err != nil {
		return models.Permission{}, translate(err)
	}
	return out, nil
}

// GetPermission fetches a permission by id.
func (s *Store) GetPermission(ctx context.Context, id int64) (models.Permission, error) {
	const query = `SELECT id, name, description FROM permissions WHERE id = $1;`
	var out models.Permission
	if err := s.pool.QueryRow(ctx, query, id).Scan(&out.ID, &out.Name, &out.Description); err != nil {
		return models.Permission{}, translate(err)
	}
	return out, nil
}

// FindPermissionByName fetches a permission by its unique name.
func (s *Store) FindPermissionByName(ctx context.Context, name string) (models.Permission, error) {
	const query = `SELECT id, name, description FROM permissions WHERE name = $1;`
	var out models.Permission
	if err := s.pool.QueryRow(ctx, query, name).Scan(&out.ID, &out.Name, &out.Description); err != nil {
		return models.Permission{}, translate(err)
	}
	return out, nil
}

// ListPermissions returns a page of permissions ordered by id.
func (s *Store) ListPermissions(ctx context.Context, page storage.Page) ([]models.Permission, error) {
	page = page.Normalize()
	const query = `SELECT id, name, description FROM permissions ORDER BY id OFFSET $1 LIMIT $2;`
	rows, err := s.pool.Query(ctx, query, page.Skip, page.Limit)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// AssignPermission grants a permission to a role; an existing grant is left untouched.
func (s *Store) AssignPermission(ctx context.Context, roleID, permissionID int64) error {
	const query = `INSERT INTO role_permission (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`
	if _, err := s.pool.Exec(ctx, query, roleID, permissionID); err != nil {
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
	WHERE rp.role_id = $1
	ORDER BY p.name;
	`
	rows, err := s.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("role permissions: %w", err)
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// CreateItem inserts an item for an existing owner.
func (s *Store) CreateItem(ctx context.Context, item models.Item) (models.Item, error) {
	const query = `
	INSERT INTO items (name, description, is_active, owner_id)
	VALUES ($1, $2, $3, $4)
	RETURNING id, name, description, is_active, owner_id;
	`
	var out models.Item
	err := s.pool.QueryRow(ctx, query, item.Name, item.Description, item.IsActive, item.OwnerID).
		Scan(&out.ID, &out.Name, &out.Description, &out.IsActive, &out.OwnerID)
	if err != nil {
		return models.Item{}, translate(err)
	}
	return out, nil
}

// ListItems returns a page of items ordered by id.
func (s *Store) ListItems(ctx context.Context, page storage.Page) ([]models.Item, error) {
	page = page.Normalize()
	const query = `SELECT id, name, description, is_active, owner_id FROM items ORDER BY id OFFSET $1 LIMIT $2;`
	rows, err := s.pool.Query(ctx, query, page.Skip, page.Limit)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ListItemsByOwner returns every item owned by ownerID.
func (s *Store) ListItemsByOwner(ctx context.Context, ownerID int64) ([]models.Item, error) {
	const query = `SELECT id, name, description, is_active, owner_id FROM items WHERE owner_id = $1 ORDER BY id;`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list items by owner: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectPermissions(rows pgx.Rows) ([]models.Permission, error) {
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

func collectItems(rows pgx.Rows) ([]models.Item, error) {
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

func scanUser(row pgx.Row) (models.User, error) {
	var (
		user      models.User
		status    string
		roleID    *int64
		roleName  *string
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
	if roleID != nil && roleName != nil {
		user.Role = &models.Role{ID: *roleID, Name: *roleName, Description: roleDescr}
	}
	return user, nil
}

// translate maps pgx and Postgres errors onto the storage sentinels.
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			switch pgErr.ConstraintName {
			case "users_email_unique":
				return storage.ErrDuplicateEmail
			case "users_national_id_unique":
				return storage.ErrDuplicateNationalID
			}
			return storage.ErrAlreadyExists
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", storage.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}
