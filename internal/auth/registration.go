package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"

	"github.com/hongminglow/citizen-portal/internal/models"
	"github.com/hongminglow/citizen-portal/internal/rbac"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

const (
	minPasswordLength      = 6
	maxPasswordBytes       = 72
	defaultRoleDescription = "Regular citizen user"
)

var nationalIDPattern = regexp.MustCompile(`^\d{9}$`)

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	NationalID string
}

// ProfileInput carries the optional fields an administrator may set when creating a user.
type ProfileInput struct {
	models.Address
	DateOfBirth *time.Time
	Gender      *string
	PhoneNumber *string
	RoleID      *int64
}

// Registrar validates and creates user accounts.
type Registrar struct {
	users  storage.UserStore
	graph  *rbac.Graph
	hasher Hasher
}

// NewRegistrar builds a Registrar.
func NewRegistrar(users storage.UserStore, graph *rbac.Graph, hasher Hasher) *Registrar {
	return &Registrar{users: users, graph: graph, hasher: hasher}
}

// Register creates a citizen account.
func (r *Registrar) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	return r.CreateWithProfile(ctx, in, ProfileInput{})
}

// CreateWithProfile creates an account with extra profile fields. A nil RoleID
// falls back to the citizen role.
func (r *Registrar) CreateWithProfile(ctx context.Context, in RegisterInput, profile ProfileInput) (models.User, error) {
	in.Email = NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.NationalID = strings.TrimSpace(in.NationalID)

	if err := r.validate(ctx, in); err != nil {
		return models.User{}, err
	}

	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, err
	}

	roleID := profile.RoleID
	if roleID == nil {
		role, err := r.graph.EnsureRole(ctx, models.RoleCitizen, defaultRoleDescription)
		if err != nil {
			return models.User{}, fmt.Errorf("resolve default role: %w", err)
		}
		roleID = &role.ID
	}

	user := models.User{
		NationalID:    in.NationalID,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		PasswordHash:  hash,
		Address:       profile.Address,
		DateOfBirth:   profile.DateOfBirth,
		Gender:        profile.Gender,
		PhoneNumber:   profile.PhoneNumber,
		IsActive:      true,
		CapsuleStatus: models.CapsuleNotReady,
		RoleID:        roleID,
	}

	created, err := r.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// validate applies the checks in order: required fields, email shape, email
// uniqueness, national id uniqueness, password length, national id format.
func (r *Registrar) validate(ctx context.Context, in RegisterInput) error {
	if in.Email == "" || in.Password == "" || in.FirstName == "" || in.LastName == "" || in.NationalID == "" {
		return ErrMissingFields
	}
	if !govalidator.IsEmail(in.Email) {
		return ErrInvalidEmail
	}

	if _, err := r.users.FindByEmail(ctx, in.Email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}

	if _, err := r.users.FindByNationalID(ctx, in.NationalID); err == nil {
		return ErrDuplicateNationalID
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check national id: %w", err)
	}

	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return ErrWeakPassword
	}
	// bcrypt rejects longer input.
	if len(in.Password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	if !nationalIDPattern.MatchString(in.NationalID) {
		return ErrInvalidNationalIDFormat
	}
	return nil
}
