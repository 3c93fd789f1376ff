package authclient

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotSignedIn is returned by operations that need a session.
var ErrNotSignedIn = &APIError{Status: http.StatusUnauthorized, Message: "You are not signed in."}

// AuthContext holds the current session and mediates the auth calls.
type AuthContext struct {
	api       *Client
	durable   Storage
	ephemeral Storage

	mu      sync.RWMutex
	session *Session
}

// New builds an AuthContext and restores a stored session, preferring durable
// storage. Unreadable or token-less data counts as no session.
func New(api *Client, durable, ephemeral Storage) *AuthContext {
	a := &AuthContext{api: api, durable: durable, ephemeral: ephemeral}
	for _, st := range []Storage{durable, ephemeral} {
		if s, err := st.Load(); err == nil && s != nil && s.Token != "" {
			a.session = s
			break
		}
	}
	return a
}

func (a *AuthContext) Login(ctx context.Context, email, password string) error {
	s, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return a.open(s, a.durable)
}

func (a *AuthContext) Signup(ctx context.Context, fields SignupFields) error {
	s, err := a.api.Signup(ctx, fields)
	if err != nil {
		return err
	}
	return a.open(s, a.durable)
}

// ContinueAsGuest opens a guest session kept in ephemeral storage only.
func (a *AuthContext) ContinueAsGuest(ctx context.Context) error {
	s, err := a.api.Guest(ctx)
	if err != nil {
		return err
	}
	return a.open(s, a.ephemeral)
}

// Logout drops the session from memory and from both storages. Calling it
// without a session is a no-op.
func (a *AuthContext) Logout() error {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()

	return errors.Join(a.durable.Clear(), a.ephemeral.Clear())
}

// UpdateUser sends a profile update and, on success, writes the new user to
// memory and to the storage holding this same session. A storage holding a
// different session is left alone.
func (a *AuthContext) UpdateUser(ctx context.Context, u ProfileUpdate) error {
	a.mu.RLock()
	current := a.session
	a.mu.RUnlock()
	if current == nil {
		return ErrNotSignedIn
	}

	user, err := a.api.UpdateProfile(ctx, current.Token, u)
	if err != nil {
		return err
	}

	updated := &Session{User: *user, Token: current.Token}
	a.mu.Lock()
	a.session = updated
	a.mu.Unlock()

	var errs []error
	for _, st := range []Storage{a.durable, a.ephemeral} {
		if stored, err := st.Load(); err == nil && stored != nil && stored.Token == current.Token {
			errs = append(errs, st.Save(updated))
		}
	}
	return errors.Join(errs...)
}

// User returns the signed-in user.
func (a *AuthContext) User() (User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return User{}, false
	}
	return a.session.User, true
}

// Token returns the session token, or "" when signed out.
func (a *AuthContext) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return ""
	}
	return a.session.Token
}

func (a *AuthContext) IsAuthenticated() bool {
	return a.Token() != ""
}

// Role reads the role claim from the token. The server verifies the
// signature; the client only needs the claim for display and routing.
func (a *AuthContext) Role() string {
	token := a.Token()
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	role, _ := claims["role"].(string)
	return role
}

func (a *AuthContext) open(s *Session, st Storage) error {
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()

	if st == a.durable {
		_ = a.ephemeral.Clear()
	}
	return st.Save(s)
}
