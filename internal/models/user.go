package models

import "time"

// CapsuleStatus tracks where a citizen is in the onboarding flow.
type CapsuleStatus string

// CapsuleNotReady is assigned to every newly created user.
const CapsuleNotReady CapsuleStatus = "not_ready"

// Address groups the optional postal fields filled in from the profile form.
type Address struct {
	City         *string `json:"city"`
	Neighborhood *string `json:"neighborhood"`
	Street       *string `json:"street"`
	Building     *string `json:"building"`
	Entrance     *string `json:"entrance"`
	PostalCode   *string `json:"postal_code"`
}

// User captures a portal account. PasswordHash never leaves the process.
type User struct {
	ID           int64  `json:"id"`
	NationalID   string `json:"national_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Address
	DateOfBirth   *time.Time    `json:"date_of_birth"`
	Gender        *string       `json:"gender"`
	PhoneNumber   *string       `json:"phone_number"`
	IsActive      bool          `json:"is_active"`
	CapsuleStatus CapsuleStatus `json:"capsule_status"`
	RoleID        *int64        `json:"role_id"`
	Role          *Role         `json:"role,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
