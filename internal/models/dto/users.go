package dto

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"

	"github.com/hongminglow/citizen-portal/internal/models"
)

// UserResponse is the public shape of a user, with role, permissions and items.
type UserResponse struct {
	ID         int64  `json:"id"`
	NationalID string `json:"national_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	models.Address
	DateOfBirth   *time.Time           `json:"date_of_birth"`
	Gender        *string              `json:"gender"`
	PhoneNumber   *string              `json:"phone_number"`
	IsActive      bool                 `json:"is_active"`
	CapsuleStatus models.CapsuleStatus `json:"capsule_status"`
	RoleID        *int64               `json:"role_id"`
	Role          *models.Role         `json:"role"`
	Items         []models.Item        `json:"items"`
	CreatedAt     time.Time            `json:"created_at"`
}

// NewUserResponse copies the public fields of user into a response body.
func NewUserResponse(user models.User, items []models.Item) (UserResponse, error) {
	var out UserResponse
	if err := copier.Copy(&out, &user); err != nil {
		return UserResponse{}, fmt.Errorf("copy user %d: %w", user.ID, err)
	}
	if items == nil {
		items = []models.Item{}
	}
	out.Items = items
	return out, nil
}

// CreateUserRequest is the administrative create payload with the full profile.
type CreateUserRequest struct {
	Email        string     `json:"email"`
	Password     string     `json:"password"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	NationalID   string     `json:"national_id"`
	City         *string    `json:"city"`
	Neighborhood *string    `json:"neighborhood"`
	Street       *string    `json:"street"`
	Building     *string    `json:"building"`
	Entrance     *string    `json:"entrance"`
	PostalCode   *string    `json:"postal_code"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	Gender       *string    `json:"gender"`
	PhoneNumber  *string    `json:"phone_number"`
	RoleID       *int64     `json:"role_id"`
}

type CreateRoleRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type CreatePermissionRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type CreateItemRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}
