package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.HandlerFunc) Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api, err := apiclient.New(srv.URL)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{API: api})
	require.NoError(t, err)
	return svc
}

func TestProfileDecodesWrappedUser(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/profile", r.URL.Path)
		_, _ = w.Write([]byte(`{"user":{"id":4,"username":"amina","role":"admin","created_at":"2026-01-01T00:00:00Z"}}`))
	})
	user, err := svc.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4", string(user.ID))
	assert.True(t, user.Role.IsAdmin())
	require.NotNil(t, user.CreatedAt)
}

func TestChangeStatusSendsPatch(t *testing.T) {
	var method string
	var body map[string]string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		assert.Equal(t, "/users/u1/status", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"id":"u1","status":"suspended"}`))
	})
	user, err := svc.ChangeStatus(context.Background(), "u1", enums.UserStatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, "suspended", body["status"])
	assert.Equal(t, "suspended", user.Status)

	_, err = svc.ChangeStatus(context.Background(), "u1", "banned")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateValidatesBeforeRequest(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	_, err := svc.Create(context.Background(), CreateRequest{Username: "x", Email: "not-an-email", Password: "secret1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Create(context.Background(), CreateRequest{Username: "x", Email: "x@example.com", Password: "secret1", Role: "root"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListAndStats(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users":
			assert.Equal(t, "admin", r.URL.Query().Get("role"))
			_, _ = w.Write([]byte(`{"users":[{"id":"u1"},{"id":"u2"}],"pagination":{"page":1,"limit":10,"total":2,"totalPages":1}}`))
		case "/users/stats":
			_, _ = w.Write([]byte(`{"stats":{"total_users":2,"active_users":1}}`))
		}
	})
	list, err := svc.List(context.Background(), ListFilters{Role: "admin"})
	require.NoError(t, err)
	assert.Len(t, list.Users, 2)
	assert.Equal(t, 2, list.Pagination.Total)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalUsers)
}
