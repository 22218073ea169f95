package model

import "time"

// Item is a reported lost or found object.
type Item struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	CategoryID    int64      `json:"category"`
	LocationID    int64      `json:"location"`
	Status        string     `json:"status"`
	FoundLostDate *time.Time `json:"found_lost_date"`
	UserID        int64      `json:"user"`
	ImageMime     string     `json:"image_mime,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	CategoryName string `json:"category_name,omitempty"`
	LocationName string `json:"location_name,omitempty"`
	Username     string `json:"username,omitempty"`
}

// Item statuses.
const (
	ItemStatusFound = "found"
	ItemStatusLost  = "lost"
)

// ValidItemStatus reports whether s is a known item status.
func ValidItemStatus(s string) bool {
	return s == ItemStatusFound || s == ItemStatusLost
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	Status     string
	CategoryID int64
	LocationID int64
	UserID     int64
	Query      string
}
