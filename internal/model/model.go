// Package model defines domain entities shared by the client, the local store and the server.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects issued access/refresh tokens.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry (for diagnostics)
}

// IsZero reports whether no credentials are held.
func (t Tokens) IsZero() bool { return t.AccessToken == "" && t.RefreshToken == "" }

// Item is the example domain entity synchronized between server and device.
type Item struct {
	ID          string // assigned by the server, immutable
	Title       string
	Description string // optional, empty when unset
	IsFavorite  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time // refreshed on every mutation
}

// ItemDraft is the payload for creating or editing an item.
type ItemDraft struct {
	Title       string
	Description string
	IsFavorite  *bool // nil leaves the server value untouched on update
}

// ItemPage is one page of the remote item listing.
type ItemPage struct {
	Items      []Item
	Page       int
	Limit      int
	TotalItems int
	TotalPages int
}

// HasNextPage reports whether the server has pages after this one.
func (p ItemPage) HasNextPage() bool { return p.Page < p.TotalPages }

// User is an account profile.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credentials are used to log in.
type Credentials struct {
	Email    string
	Password string
}

// SignUp carries registration data.
type SignUp struct {
	Email    string
	Password string
	Name     string
}

// UserUpdate holds optional profile changes.
type UserUpdate struct {
	Name  *string
	Email *string
}

// AuthResult is returned by login, sign up and refresh.
type AuthResult struct {
	Tokens Tokens
	User   *User // absent on refresh
}

// UserRecord is the server-side account row.
type UserRecord struct {
	ID        uuid.UUID
	Email     string
	Name      string
	PwdHash   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemRecord is the server-side item row.
type ItemRecord struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
	IsFavorite  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RefreshToken is an issued refresh token, identified by its jti claim.
type RefreshToken struct {
	JTI       uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
}
