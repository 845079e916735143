// Package api is the typed client of the item backend: endpoint catalog,
// error taxonomy, request engine and the auth-refresh interceptor.
package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/and161185/itemsync/internal/convert"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/wire"
)

// Operation identifies one endpoint variant.
type Operation int

const (
	OpLogin Operation = iota + 1
	OpSignUp
	OpRefreshToken
	OpLogout
	OpCurrentUser
	OpUpdateUser
	OpDeleteAccount
	OpListItems
	OpGetItem
	OpCreateItem
	OpUpdateItem
	OpDeleteItem
)

var opNames = map[Operation]string{
	OpLogin:         "login",
	OpSignUp:        "sign_up",
	OpRefreshToken:  "refresh_token",
	OpLogout:        "logout",
	OpCurrentUser:   "current_user",
	OpUpdateUser:    "update_user",
	OpDeleteAccount: "delete_account",
	OpListItems:     "list_items",
	OpGetItem:       "get_item",
	OpCreateItem:    "create_item",
	OpUpdateItem:    "update_item",
	OpDeleteItem:    "delete_item",
}

func (o Operation) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return "operation(" + strconv.Itoa(int(o)) + ")"
}

// Endpoint is an immutable request descriptor. Build it with the
// constructors below; the zero value is not a valid endpoint.
type Endpoint struct {
	op    Operation
	id    string
	page  int
	limit int
	body  any
}

func Login(c model.Credentials) Endpoint {
	return Endpoint{op: OpLogin, body: wire.Credentials{Email: c.Email, Password: c.Password}}
}

func SignUp(s model.SignUp) Endpoint {
	return Endpoint{op: OpSignUp, body: wire.SignUpRequest{Email: s.Email, Password: s.Password, Name: s.Name}}
}

func RefreshToken(refreshToken string) Endpoint {
	return Endpoint{op: OpRefreshToken, body: wire.RefreshRequest{RefreshToken: refreshToken}}
}

func Logout() Endpoint        { return Endpoint{op: OpLogout} }
func CurrentUser() Endpoint   { return Endpoint{op: OpCurrentUser} }
func DeleteAccount() Endpoint { return Endpoint{op: OpDeleteAccount} }

func UpdateUser(u model.UserUpdate) Endpoint {
	return Endpoint{op: OpUpdateUser, body: convert.ToWireUserUpdate(u)}
}

func ListItems(page, limit int) Endpoint {
	return Endpoint{op: OpListItems, page: page, limit: limit}
}

func GetItem(id string) Endpoint { return Endpoint{op: OpGetItem, id: id} }

func CreateItem(d model.ItemDraft) Endpoint {
	return Endpoint{op: OpCreateItem, body: convert.ToWireItemDraft(d)}
}

func UpdateItem(id string, d model.ItemDraft) Endpoint {
	return Endpoint{op: OpUpdateItem, id: id, body: convert.ToWireItemDraft(d)}
}

func DeleteItem(id string) Endpoint { return Endpoint{op: OpDeleteItem, id: id} }

// Operation returns the endpoint variant.
func (e Endpoint) Operation() Operation { return e.op }

// Path returns the URL path relative to the API base URL.
func (e Endpoint) Path() string {
	switch e.op {
	case OpLogin:
		return "/auth/login"
	case OpSignUp:
		return "/auth/signup"
	case OpRefreshToken:
		return "/auth/refresh"
	case OpLogout:
		return "/auth/logout"
	case OpCurrentUser, OpUpdateUser, OpDeleteAccount:
		return "/users/me"
	case OpListItems, OpCreateItem:
		return "/items"
	case OpGetItem, OpUpdateItem, OpDeleteItem:
		return "/items/" + url.PathEscape(e.id)
	default:
		return "/"
	}
}

// Method returns the HTTP method.
func (e Endpoint) Method() string {
	switch e.op {
	case OpLogin, OpSignUp, OpRefreshToken, OpCreateItem:
		return http.MethodPost
	case OpUpdateUser, OpUpdateItem:
		return http.MethodPut
	case OpDeleteAccount, OpDeleteItem:
		return http.MethodDelete
	default:
		return http.MethodGet
	}
}

// RequiresAuth is false only for the endpoints that obtain credentials.
func (e Endpoint) RequiresAuth() bool {
	switch e.op {
	case OpLogin, OpSignUp, OpRefreshToken:
		return false
	default:
		return true
	}
}

// Query returns the query parameters, or nil.
func (e Endpoint) Query() url.Values {
	if e.op != OpListItems {
		return nil
	}
	return url.Values{
		"page":  []string{strconv.Itoa(e.page)},
		"limit": []string{strconv.Itoa(e.limit)},
	}
}

// Body returns the value to serialize as the JSON request body, or nil.
func (e Endpoint) Body() any { return e.body }

// Headers returns the static headers of the request. Authorization is added by the engine.
func (e Endpoint) Headers() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if e.body != nil {
		h.Set("Content-Type", "application/json")
	}
	return h
}

func (e Endpoint) String() string { return e.Method() + " " + e.Path() }
