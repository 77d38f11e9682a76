// Package seed loads reference roles, permissions and bootstrap accounts.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hongminglow/citizen-portal/internal/auth"
	"github.com/hongminglow/citizen-portal/internal/models"
	"github.com/hongminglow/citizen-portal/internal/rbac"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

//go:embed default.yaml
var defaultSeed []byte

const dateLayout = "2006-01-02"

// File is the on-disk seed format.
type File struct {
	Permissions []Permission `yaml:"permissions"`
	Roles       []Role       `yaml:"roles"`
	Users       []User       `yaml:"users"`
}

type Permission struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type Role struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

type User struct {
	Email        string `yaml:"email"`
	Password     string `yaml:"password"`
	FirstName    string `yaml:"first_name"`
	LastName     string `yaml:"last_name"`
	NationalID   string `yaml:"national_id"`
	Role         string `yaml:"role"`
	City         string `yaml:"city"`
	Neighborhood string `yaml:"neighborhood"`
	Street       string `yaml:"street"`
	Building     string `yaml:"building"`
	Entrance     string `yaml:"entrance"`
	PostalCode   string `yaml:"postal_code"`
	DateOfBirth  string `yaml:"date_of_birth"`
	Gender       string `yaml:"gender"`
	PhoneNumber  string `yaml:"phone_number"`
}

// Result counts what Apply created.
type Result struct {
	Roles       int
	Permissions int
	Users       int
}

// Default returns the embedded seed.
func Default() (File, error) {
	return parse(defaultSeed)
}

// Load reads a seed file from path, or the embedded default when path is empty.
func Load(path string) (File, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading seed file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parsing seed file: %w", err)
	}
	return f, nil
}

// Seeder applies seed files against a store.
type Seeder struct {
	store     storage.Store
	graph     *rbac.Graph
	registrar *auth.Registrar
	logger    *slog.Logger
}

// NewSeeder builds a Seeder.
func NewSeeder(store storage.Store, graph *rbac.Graph, registrar *auth.Registrar, logger *slog.Logger) *Seeder {
	return &Seeder{store: store, graph: graph, registrar: registrar, logger: logger}
}

// Apply creates whatever in f is missing and re-applies every grant. Running it
// again against the same store creates nothing.
func (s *Seeder) Apply(ctx context.Context, f File) (Result, error) {
	var res Result

	for _, p := range f.Permissions {
		_, err := s.store.FindPermissionByName(ctx, p.Name)
		if err == nil {
			s.logger.Debug("permission already exists", "permission", p.Name)
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return res, fmt.Errorf("find permission %q: %w", p.Name, err)
		}
		if _, err := s.graph.EnsurePermission(ctx, p.Name, p.Description); err != nil {
			return res, err
		}
		s.logger.Info("created permission", "permission", p.Name)
		res.Permissions++
	}

	for _, r := range f.Roles {
		_, err := s.store.FindRoleByName(ctx, r.Name)
		created := errors.Is(err, storage.ErrNotFound)
		if err != nil && !created {
			return res, fmt.Errorf("find role %q: %w", r.Name, err)
		}
		role, err := s.graph.EnsureRole(ctx, r.Name, r.Description)
		if err != nil {
			return res, err
		}
		if created {
			s.logger.Info("created role", "role", r.Name)
			res.Roles++
		}

		for _, name := range r.Permissions {
			perm, err := s.store.FindPermissionByName(ctx, name)
			if err != nil {
				return res, fmt.Errorf("grant %q to %q: %w", name, r.Name, err)
			}
			if err := s.graph.AssignPermission(ctx, role.ID, perm.ID); err != nil {
				return res, fmt.Errorf("grant %q to %q: %w", name, r.Name, err)
			}
		}
	}

	for _, u := range f.Users {
		_, err := s.store.FindByEmail(ctx, auth.NormalizeEmail(u.Email))
		if err == nil {
			s.logger.Debug("user already exists", "email", u.Email)
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return res, fmt.Errorf("find user %q: %w", u.Email, err)
		}
		if err := s.createUser(ctx, u); err != nil {
			return res, err
		}
		s.logger.Info("created user", "email", u.Email, "role", u.Role)
		res.Users++
	}

	return res, nil
}

func (s *Seeder) createUser(ctx context.Context, u User) error {
	profile := auth.ProfileInput{
		Address: models.Address{
			City:         optional(u.City),
			Neighborhood: optional(u.Neighborhood),
			Street:       optional(u.Street),
			Building:     optional(u.Building),
			Entrance:     optional(u.Entrance),
			PostalCode:   optional(u.PostalCode),
		},
		Gender:      optional(u.Gender),
		PhoneNumber: optional(u.PhoneNumber),
	}
	if u.DateOfBirth != "" {
		dob, err := time.Parse(dateLayout, u.DateOfBirth)
		if err != nil {
			return fmt.Errorf("user %q date_of_birth: %w", u.Email, err)
		}
		profile.DateOfBirth = &dob
	}
	if u.Role != "" {
		role, err := s.store.FindRoleByName(ctx, u.Role)
		if err != nil {
			return fmt.Errorf("user %q role %q: %w", u.Email, u.Role, err)
		}
		profile.RoleID = &role.ID
	}

	_, err := s.registrar.CreateWithProfile(ctx, auth.RegisterInput{
		Email:      u.Email,
		Password:   u.Password,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		NationalID: u.NationalID,
	}, profile)
	if err != nil {
		return fmt.Errorf("create user %q: %w", u.Email, err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
