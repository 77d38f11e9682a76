package models

// Role names seeded at initialization.
const (
	RoleCitizen          = "citizen"
	RoleGovernmentOffice = "government_office"
	RoleLocalAuthority   = "local_authority"
	RoleAdmin            = "admin"
)

// Permission names seeded at initialization.
const (
	PermReadPublic      = "read_public"
	PermEditProfile     = "edit_profile"
	PermSubmitRequest   = "submit_request"
	PermManageUsers     = "manage_users"
	PermApproveRequests = "approve_requests"
	PermAdminAccess     = "admin_access"
)

type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Permissions []Permission `json:"permissions"`
}

type Permission struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}
