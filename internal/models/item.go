package models

// Item is a request or record owned by a single user.
type Item struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IsActive    bool    `json:"is_active"`
	OwnerID     int64   `json:"owner_id"`
}
