// Package wire defines the JSON shapes exchanged with the REST backend.
// Field names are snake_case and timestamps are RFC 3339 strings.
package wire

import "time"

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignUpRequest is the sign-up request body.
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthResponse is returned by login, sign-up and refresh.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// User is a profile as seen on the wire.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserUpdate carries optional profile changes.
type UserUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty" binding:"omitempty,email"`
}

// Item is an item as seen on the wire.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsFavorite  bool      `json:"is_favorite"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemDraft is the create/update item body.
type ItemDraft struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description,omitempty"`
	IsFavorite  *bool  `json:"is_favorite,omitempty"`
}

// ItemPage is the pagination envelope of the item listing.
type ItemPage struct {
	Items      []Item `json:"items"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalItems int    `json:"total_items"`
	TotalPages int    `json:"total_pages"`
}

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Message    string `json:"message"`
	RetryAfter *int   `json:"retry_after,omitempty"`
}
