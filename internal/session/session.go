// Package session owns the signed-in user and bearer token.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/localstore"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

// User is the authenticated account as returned by the auth endpoints.
type User struct {
	ID            types.ID       `json:"id"`
	Username      string         `json:"username"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone,omitempty"`
	Location      string         `json:"location,omitempty"`
	Role          enums.UserRole `json:"role"`
	Status        string         `json:"status,omitempty"`
	EmailVerified bool           `json:"email_verified"`
}

// Store holds the session and mirrors it to the local store under the token and user keys.
type Store struct {
	mu            sync.RWMutex
	token         string
	user          *User
	emailVerified bool
	store         localstore.Store
	logg          *logger.Logger
}

// Load restores the saved token and user. A session is only restored when both are present.
func Load(ctx context.Context, store localstore.Store, logg *logger.Logger) (*Store, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "local store is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Store{store: store, logg: logg}

	rawToken, err := store.Get(ctx, localstore.KeyToken)
	if errors.Is(err, localstore.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session token")
	}

	var user User
	found, err := localstore.LoadJSON(ctx, store, localstore.KeyUser, &user)
	if err != nil {
		logg.WarnErr(ctx, "discarding unreadable saved user", err)
		return s, s.Clear(ctx)
	}
	if !found {
		return s, nil
	}

	s.token = string(rawToken)
	s.user = &user
	s.emailVerified = user.EmailVerified
	return s, nil
}

// Token implements apiclient.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user.
func (s *Store) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// IsAuthenticated requires both a token and a user.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

func (s *Store) IsAdmin() bool {
	user, ok := s.User()
	return ok && user.Role.IsAdmin()
}

func (s *Store) IsSuperAdmin() bool {
	user, ok := s.User()
	return ok && user.Role.IsSuperAdmin()
}

func (s *Store) EmailVerified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emailVerified
}

// Set replaces the session and persists it.
func (s *Store) Set(ctx context.Context, token string, user User, emailVerified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(ctx, localstore.KeyToken, []byte(token)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save session token")
	}
	if err := localstore.SaveJSON(ctx, s.store, localstore.KeyUser, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save session user")
	}
	s.token = token
	s.user = &user
	s.emailVerified = emailVerified
	return nil
}

// SetUser replaces the stored user and keeps the token.
func (s *Store) SetUser(ctx context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := localstore.SaveJSON(ctx, s.store, localstore.KeyUser, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save session user")
	}
	s.user = &user
	return nil
}

// SetEmailVerified updates the in-memory verification flag.
func (s *Store) SetEmailVerified(verified bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emailVerified = verified
}

// Clear drops the session and its persisted keys.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.emailVerified = false
	if err := s.store.Delete(ctx, localstore.KeyToken, localstore.KeyUser); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear session")
	}
	return nil
}

// HandleUnauthorized is the apiclient 401 hook: it signs the user out.
func (s *Store) HandleUnauthorized(ctx context.Context) {
	if err := s.Clear(ctx); err != nil {
		s.logg.WarnErr(ctx, "clearing session after 401 failed", err)
		return
	}
	s.logg.Warn(ctx, "session expired; sign in again")
}
