package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/raamul-storefront/internal/session"
	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	jwtauth "github.com/angelmondragon/raamul-storefront/pkg/auth"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/localstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     Service
	session *session.Store

	mu    sync.Mutex
	calls map[string]int
}

func (f *fixture) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func newFixture(t *testing.T, handler http.HandlerFunc, now time.Time) *fixture {
	t.Helper()
	f := &fixture{calls: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	store, err := session.Load(context.Background(), localstore.NewMemory(), nil)
	require.NoError(t, err)
	f.session = store

	api, err := apiclient.New(srv.URL, apiclient.WithTokenSource(store))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{API: api, Session: store, Now: func() time.Time { return now }})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func mintToken(t *testing.T, issuedAt time.Time, ttl time.Duration) string {
	t.Helper()
	cfg := jwtauth.TokenConfig{Secret: "test-secret", Issuer: "test", TTL: ttl}
	token, err := jwtauth.MintAccessToken(cfg, issuedAt, jwtauth.AccessTokenPayload{
		UserID: "u1",
		Email:  "amina@example.com",
		Role:   enums.UserRoleCustomer,
	})
	require.NoError(t, err)
	return token
}

func TestLoginPersistsSession(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "amina" || body["password"] != "secret1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "tok-1",
			"user":  map[string]any{"id": 7, "username": "amina", "role": "customer", "email_verified": true},
		})
	}, time.Now())

	user, err := f.svc.Login(context.Background(), LoginRequest{Username: " amina ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "7", string(user.ID))
	assert.True(t, f.session.IsAuthenticated())
	assert.True(t, f.session.EmailVerified())
	assert.Equal(t, "tok-1", f.session.Token())
}

func TestLoginRejectedKeepsSignedOut(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid credentials"})
	}, time.Now())

	_, err := f.svc.Login(context.Background(), LoginRequest{Username: "amina", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", pkgerrors.UserMessage(err, ""))
	assert.False(t, f.session.IsAuthenticated())
}

func TestSignupValidatesLocally(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}, time.Now())

	base := SignupRequest{Username: "amina", Email: "amina@example.com", Phone: "0712345678", Location: "Nairobi"}

	short := base
	short.Password, short.ConfirmPassword = "abc", "abc"
	_, err := f.svc.Signup(context.Background(), short)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	mismatch := base
	mismatch.Password, mismatch.ConfirmPassword = "secret1", "secret2"
	_, err = f.svc.Signup(context.Background(), mismatch)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSignupStartsUnverified(t *testing.T) {
	var sent map[string]any
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sent)
		writeJSON(w, http.StatusCreated, map[string]any{
			"token": "tok-2",
			"user":  map[string]any{"id": "u2", "username": "amina", "email_verified": true},
		})
	}, time.Now())

	_, err := f.svc.Signup(context.Background(), SignupRequest{
		Username: "amina", Email: "amina@example.com", Phone: "0712345678",
		Location: "Nairobi", Password: "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	assert.False(t, f.session.EmailVerified())
	assert.NotContains(t, sent, "confirmPassword")
	assert.NotContains(t, sent, "ConfirmPassword")
	assert.Equal(t, "Nairobi", sent["location"])
}

func TestRestoreClearsExpiredTokenWithoutNetwork(t *testing.T) {
	now := time.Now()
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}, now)
	expired := mintToken(t, now.Add(-2*time.Hour), time.Hour)
	require.NoError(t, f.session.Set(context.Background(), expired, session.User{ID: "u1"}, true))

	require.NoError(t, f.svc.Restore(context.Background()))
	assert.False(t, f.session.IsAuthenticated())
	assert.Equal(t, 0, f.count("GET /auth/verify"))
}

func TestRestoreRefreshesUserOnSuccess(t *testing.T) {
	now := time.Now()
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"user": map[string]any{"id": "u1", "username": "amina-renamed", "email_verified": true},
		})
	}, now)
	require.NoError(t, f.session.Set(context.Background(), mintToken(t, now, time.Hour), session.User{ID: "u1", Username: "amina"}, false))

	require.NoError(t, f.svc.Restore(context.Background()))
	user, ok := f.session.User()
	require.True(t, ok)
	assert.Equal(t, "amina-renamed", user.Username)
	assert.True(t, f.session.EmailVerified())
	assert.Equal(t, 1, f.count("GET /auth/verify"))
}

func TestRestoreClearsRejectedToken(t *testing.T) {
	now := time.Now()
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Invalid token"})
	}, now)
	require.NoError(t, f.session.Set(context.Background(), mintToken(t, now, time.Hour), session.User{ID: "u1"}, true))

	require.NoError(t, f.svc.Restore(context.Background()))
	assert.False(t, f.session.IsAuthenticated())
}

func TestRestoreKeepsSessionWhenOffline(t *testing.T) {
	store, err := session.Load(context.Background(), localstore.NewMemory(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), "opaque-token", session.User{ID: "u1"}, true))

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	api, err := apiclient.New(srv.URL, apiclient.WithTokenSource(store))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{API: api, Session: store})
	require.NoError(t, err)

	require.NoError(t, svc.Restore(context.Background()))
	assert.True(t, store.IsAuthenticated())
	assert.True(t, store.EmailVerified())
}

func TestPasswordAndVerificationEndpoints(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/verification-status":
			writeJSON(w, http.StatusOK, map[string]bool{"email_verified": true})
		case "/auth/verify-reset-token/abc":
			writeJSON(w, http.StatusOK, map[string]any{"message": "Token is valid", "valid": true})
		default:
			writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
		}
	}, time.Now())
	ctx := context.Background()
	require.NoError(t, f.session.Set(ctx, "tok", session.User{ID: "u1"}, false))

	resp, err := f.svc.VerifyResetToken(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, resp.Valid)
	assert.True(t, *resp.Valid)

	_, err = f.svc.ForgotPassword(ctx, "amina@example.com")
	require.NoError(t, err)
	_, err = f.svc.ResetPassword(ctx, "abc", "newpass1")
	require.NoError(t, err)
	_, err = f.svc.ChangePassword(ctx, "secret1", "newpass1")
	require.NoError(t, err)
	_, err = f.svc.ResendVerification(ctx)
	require.NoError(t, err)

	verified, err := f.svc.VerificationStatus(ctx)
	require.NoError(t, err)
	assert.True(t, verified)
	assert.True(t, f.session.EmailVerified())

	_, err = f.svc.ResetPassword(ctx, "abc", "123")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Equal(t, 1, f.count("POST /auth/forgot-password"))
	assert.Equal(t, 1, f.count("POST /auth/reset-password"))
	assert.Equal(t, 1, f.count("POST /auth/change-password"))
	assert.Equal(t, 1, f.count("POST /auth/resend-verification"))
}

func TestLogoutClearsSession(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, time.Now())
	ctx := context.Background()
	require.NoError(t, f.session.Set(ctx, "tok", session.User{ID: "u1"}, true))
	require.NoError(t, f.svc.Logout(ctx))
	assert.False(t, f.session.IsAuthenticated())
}
