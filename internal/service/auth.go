// Package service contains application services for authentication and items.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/itemsync/internal/crypto"
	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/limiter"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/repository"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    uuid.UUID
	SessionID uuid.UUID // jti of the refresh token the access token was issued with
}

// AuthService defines account and session operations.
type AuthService interface {
	// SignUp creates an account and opens a session for it.
	SignUp(ctx context.Context, s model.SignUp) (model.AuthResult, error)
	// Login applies rate limiting by (email, ip) and authenticates the user.
	Login(ctx context.Context, c model.Credentials, ip string) (model.AuthResult, error)
	// Refresh rotates a refresh token into a new token pair.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	// Logout revokes the session of p.
	Logout(ctx context.Context, p Principal) error
	// Authenticate validates an access token.
	Authenticate(token string) (Principal, error)

	Me(ctx context.Context, userID uuid.UUID) (model.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, upd model.UserUpdate) (model.User, error)
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

type AuthServiceImpl struct {
	users      repository.UserRepository
	tokens     repository.TokenRepository
	lim        limiter.Limiter
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	lim limiter.Limiter,
	signKey []byte,
	accessTTL, refreshTTL time.Duration,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:      users,
		tokens:     tokens,
		lim:        lim,
		signKey:    signKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

type claims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
	SID  string `json:"sid,omitempty"`
}

func validEmail(email string) bool {
	a, err := mail.ParseAddress(email)
	return err == nil && a.Address == email
}

// SignUp validates input, hashes the password and stores the user.
func (s *AuthServiceImpl) SignUp(ctx context.Context, in model.SignUp) (model.AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.Name)
	switch {
	case !validEmail(email):
		return model.AuthResult{}, errs.Validation("invalid email")
	case len(in.Password) < MinPasswordLen:
		return model.AuthResult{}, errs.Validation(fmt.Sprintf("password must be at least %d characters", MinPasswordLen))
	case name == "":
		return model.AuthResult{}, errs.Validation("name is required")
	}

	hash, err := pkgcrypto.HashPassword(in.Password)
	if err != nil {
		return model.AuthResult{}, err
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.AuthResult{}, err
	}
	u := &model.UserRecord{ID: uid, Email: email, Name: name, PwdHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return model.AuthResult{}, err
	}

	tok, err := s.openSession(ctx, uid)
	if err != nil {
		return model.AuthResult{}, err
	}
	user := toUser(u)
	return model.AuthResult{Tokens: tok, User: &user}, nil
}

// Login authenticates with rate limiting by (email, ip). Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthServiceImpl) Login(ctx context.Context, c model.Credentials, ip string) (model.AuthResult, error) {
	ipHash := limiter.HashIP(ip)

	allowed, wait, err := s.lim.Allow(ctx, c.Email, ipHash)
	if err != nil {
		return model.AuthResult{}, err
	}
	if !allowed {
		return model.AuthResult{}, &errs.RateLimitError{RetryAfter: wait}
	}

	u, err := s.users.GetByEmail(ctx, c.Email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.AuthResult{}, err
	}
	ok := false
	if u != nil {
		if ok, err = pkgcrypto.VerifyPassword(c.Password, u.PwdHash); err != nil {
			return model.AuthResult{}, err
		}
	}
	if !ok {
		blocked, wait, ferr := s.lim.Failure(ctx, c.Email, ipHash)
		if ferr != nil {
			return model.AuthResult{}, ferr
		}
		if blocked {
			return model.AuthResult{}, &errs.RateLimitError{RetryAfter: wait}
		}
		return model.AuthResult{}, errs.ErrUnauthorized
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, c.Email, ipHash)

	tok, err := s.openSession(ctx, u.ID)
	if err != nil {
		return model.AuthResult{}, err
	}
	user := toUser(u)
	return model.AuthResult{Tokens: tok, User: &user}, nil
}

// Refresh validates the refresh token, revokes it and issues a new pair.
// Presenting a rotated token again fails with ErrUnauthorized.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	c, err := s.parse(refreshToken, typeRefresh)
	if err != nil {
		return model.Tokens{}, err
	}
	uid, err := uuid.FromString(c.Subject)
	if err != nil {
		return model.Tokens{}, errs.ErrUnauthorized
	}
	old, err := uuid.FromString(c.ID)
	if err != nil {
		return model.Tokens{}, errs.ErrUnauthorized
	}

	next, refresh, err := s.issueRefreshToken(uid)
	if err != nil {
		return model.Tokens{}, err
	}
	if err := s.tokens.Rotate(ctx, old, next); err != nil {
		return model.Tokens{}, err
	}
	access, exp, err := s.issueAccessToken(uid, next.JTI)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// Logout revokes the refresh token bound to the caller's access token.
func (s *AuthServiceImpl) Logout(ctx context.Context, p Principal) error {
	if p.SessionID == uuid.Nil {
		return nil
	}
	return s.tokens.Revoke(ctx, p.SessionID)
}

// Authenticate verifies an HS256 access token and returns its principal.
func (s *AuthServiceImpl) Authenticate(token string) (Principal, error) {
	c, err := s.parse(token, typeAccess)
	if err != nil {
		return Principal{}, err
	}
	uid, err := uuid.FromString(c.Subject)
	if err != nil {
		return Principal{}, errs.ErrUnauthorized
	}
	sid, _ := uuid.FromString(c.SID)
	return Principal{UserID: uid, SessionID: sid}, nil
}

func (s *AuthServiceImpl) Me(ctx context.Context, userID uuid.UUID) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	return toUser(u), nil
}

// UpdateUser changes the non-nil fields of upd.
func (s *AuthServiceImpl) UpdateUser(ctx context.Context, userID uuid.UUID, upd model.UserUpdate) (model.User, error) {
	var name, email *string
	if upd.Name != nil {
		n := strings.TrimSpace(*upd.Name)
		if n == "" {
			return model.User{}, errs.Validation("name must not be empty")
		}
		name = &n
	}
	if upd.Email != nil {
		e := strings.TrimSpace(*upd.Email)
		if !validEmail(e) {
			return model.User{}, errs.Validation("invalid email")
		}
		email = &e
	}
	if name == nil && email == nil {
		return s.Me(ctx, userID)
	}
	u, err := s.users.Update(ctx, userID, name, email)
	if err != nil {
		return model.User{}, err
	}
	return toUser(u), nil
}

// DeleteAccount removes the user together with items and sessions.
func (s *AuthServiceImpl) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	return s.users.Delete(ctx, userID)
}

func (s *AuthServiceImpl) openSession(ctx context.Context, userID uuid.UUID) (model.Tokens, error) {
	rt, refresh, err := s.issueRefreshToken(userID)
	if err != nil {
		return model.Tokens{}, err
	}
	if err := s.tokens.Save(ctx, rt); err != nil {
		return model.Tokens{}, err
	}
	access, exp, err := s.issueAccessToken(userID, rt.JTI)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID, sid uuid.UUID) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Type: typeAccess,
		SID:  sid.String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.signKey)
	return signed, exp, err
}

func (s *AuthServiceImpl) issueRefreshToken(userID uuid.UUID) (model.RefreshToken, string, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return model.RefreshToken{}, "", err
	}
	now := s.now()
	rt := model.RefreshToken{JTI: jti, UserID: userID, ExpiresAt: now.Add(s.refreshTTL)}
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(rt.ExpiresAt),
		},
		Type: typeRefresh,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.signKey)
	return rt, signed, err
}

func (s *AuthServiceImpl) parse(token, typ string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || c.Type != typ {
		return nil, errs.ErrUnauthorized
	}
	return &c, nil
}

func toUser(u *model.UserRecord) model.User {
	return model.User{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
