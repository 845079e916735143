// Package convert maps between domain models and their wire representation.
package convert

import (
	"time"

	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/wire"
)

// --- helpers ---

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// --- Items ---

// ToWireItem converts a domain item to its wire form.
func ToWireItem(it model.Item) wire.Item {
	return wire.Item{
		ID:          it.ID,
		Title:       it.Title,
		Description: it.Description,
		IsFavorite:  it.IsFavorite,
		CreatedAt:   utc(it.CreatedAt),
		UpdatedAt:   utc(it.UpdatedAt),
	}
}

// FromWireItem converts a wire item to the domain model; timestamps are normalized to UTC.
func FromWireItem(in wire.Item) model.Item {
	return model.Item{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		IsFavorite:  in.IsFavorite,
		CreatedAt:   utc(in.CreatedAt),
		UpdatedAt:   utc(in.UpdatedAt),
	}
}

// ToWireItems converts a slice of items; nil input gives an empty slice so the JSON is [].
func ToWireItems(in []model.Item) []wire.Item {
	out := make([]wire.Item, 0, len(in))
	for _, it := range in {
		out = append(out, ToWireItem(it))
	}
	return out
}

// FromWireItems converts a slice of wire items.
func FromWireItems(in []wire.Item) []model.Item {
	out := make([]model.Item, 0, len(in))
	for _, it := range in {
		out = append(out, FromWireItem(it))
	}
	return out
}

// ToWireItemDraft converts an item draft.
func ToWireItemDraft(d model.ItemDraft) wire.ItemDraft {
	return wire.ItemDraft{Title: d.Title, Description: d.Description, IsFavorite: d.IsFavorite}
}

// FromWireItemDraft converts a wire draft.
func FromWireItemDraft(d wire.ItemDraft) model.ItemDraft {
	return model.ItemDraft{Title: d.Title, Description: d.Description, IsFavorite: d.IsFavorite}
}

// --- Pages ---

// ToWireItemPage converts a page of items.
func ToWireItemPage(p model.ItemPage) wire.ItemPage {
	return wire.ItemPage{
		Items:      ToWireItems(p.Items),
		Page:       p.Page,
		Limit:      p.Limit,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
	}
}

// FromWireItemPage converts a wire page.
func FromWireItemPage(p wire.ItemPage) model.ItemPage {
	return model.ItemPage{
		Items:      FromWireItems(p.Items),
		Page:       p.Page,
		Limit:      p.Limit,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
	}
}

// --- Users / auth ---

// ToWireUser converts a user profile.
func ToWireUser(u model.User) wire.User {
	return wire.User{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: utc(u.CreatedAt), UpdatedAt: utc(u.UpdatedAt)}
}

// FromWireUser converts a wire user profile.
func FromWireUser(u wire.User) model.User {
	return model.User{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: utc(u.CreatedAt), UpdatedAt: utc(u.UpdatedAt)}
}

// ToWireUserUpdate converts profile changes.
func ToWireUserUpdate(u model.UserUpdate) wire.UserUpdate {
	return wire.UserUpdate{Name: u.Name, Email: u.Email}
}

// FromWireUserUpdate converts wire profile changes.
func FromWireUserUpdate(u wire.UserUpdate) model.UserUpdate {
	return model.UserUpdate{Name: u.Name, Email: u.Email}
}

// ToWireAuth converts tokens and an optional user into an auth response.
func ToWireAuth(t model.Tokens, u *model.User) wire.AuthResponse {
	out := wire.AuthResponse{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
	if u != nil {
		wu := ToWireUser(*u)
		out.User = &wu
	}
	return out
}

// FromWireAuth converts an auth response. Token expiry is left for the caller to fill.
func FromWireAuth(in wire.AuthResponse) model.AuthResult {
	res := model.AuthResult{Tokens: model.Tokens{AccessToken: in.AccessToken, RefreshToken: in.RefreshToken}}
	if in.User != nil {
		u := FromWireUser(*in.User)
		res.User = &u
	}
	return res
}
