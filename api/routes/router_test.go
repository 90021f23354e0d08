package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/raamul-storefront/api/middleware"
	"github.com/angelmondragon/raamul-storefront/internal/sandbox"
	"github.com/angelmondragon/raamul-storefront/pkg/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		Sandbox: config.SandboxConfig{
			JWTSecret:         "router-secret",
			JWTIssuer:         "raamul-test",
			JWTExpiration:     time.Hour,
			PaymentScript:     []string{"pending", "completed"},
			ArgonMemoryKB:     64,
			ArgonTime:         1,
			ArgonParallelism:  1,
			ArgonSaltLen:      8,
			ArgonKeyLen:       16,
			SeedAdminPassword: "admin123",
		},
	}
	backend, err := sandbox.New(sandbox.Params{Config: cfg.Sandbox})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Params{
		Config:      cfg,
		Backend:     backend,
		Idempotency: middleware.NewMemoryIdempotencyStore(),
		Registry:    prometheus.NewRegistry(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any, headers map[string]string) (int, map[string]any, http.Header) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out, resp.Header
}

func signup(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	status, body, _ := call(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"phone":    "+254712345678",
		"location": "Nairobi",
		"password": "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestPublicCatalogue(t *testing.T) {
	srv := newTestServer(t)

	status, body, headers := call(t, srv, http.MethodGet, "/api/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "test", headers.Get("X-Raamul-Env"))
	assert.Equal(t, "live", body["status"])

	status, body, _ = call(t, srv, http.MethodGet, "/api/products?limit=2", "", nil, nil)
	require.Equal(t, http.StatusOK, status)
	list, _ := body["products"].([]any)
	assert.Len(t, list, 2)
	page, _ := body["pagination"].(map[string]any)
	assert.EqualValues(t, 6, page["total"])

	status, body, _ = call(t, srv, http.MethodGet, "/api/products/sku/GYP-ROCK", "", nil, nil)
	require.Equal(t, http.StatusOK, status)
	product, _ := body["product"].(map[string]any)
	assert.Equal(t, "GYP-ROCK", product["sku"])

	status, body, _ = call(t, srv, http.MethodGet, "/api/products/999", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["message"])
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	status, body, _ := call(t, srv, http.MethodGet, "/api/orders", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Access token required", body["message"])

	token := signup(t, srv, "wanjiku")
	status, body, _ = call(t, srv, http.MethodGet, "/api/auth/verify", token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["valid"])

	status, body, _ = call(t, srv, http.MethodGet, "/api/auth/verification-status", token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["email_verified"])
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	srv := newTestServer(t)
	token := signup(t, srv, "kamau")

	status, body, _ := call(t, srv, http.MethodGet, "/api/users", token, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Admin access required", body["message"])

	status, body, _ = call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "admin",
		"password": "admin123",
	}, nil)
	require.Equal(t, http.StatusOK, status)
	adminToken, _ := body["token"].(string)

	status, body, _ = call(t, srv, http.MethodGet, "/api/users/stats", adminToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	stats, _ := body["stats"].(map[string]any)
	assert.EqualValues(t, 2, stats["total_users"])
}

func TestOrderAndPaymentFlow(t *testing.T) {
	srv := newTestServer(t)
	token := signup(t, srv, "njeri")

	order := map[string]any{
		"order_id": "RML-TEST-1",
		"customer": map[string]string{"name": "Njeri", "email": "njeri@example.com"},
		"items": []map[string]any{
			{"product_id": "1", "name": "Gypsum Rock Lumps", "quantity": 2, "price": 15000},
		},
		"pricing": map[string]any{"subtotal": 30000, "tax": 0, "shipping": 0, "total": 30000},
	}
	idem := map[string]string{"Idempotency-Key": "RML-TEST-1"}

	status, body, _ := call(t, srv, http.MethodPost, "/api/orders", token, order, idem)
	require.Equal(t, http.StatusCreated, status, body)
	created, _ := body["order"].(map[string]any)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	status, body, headers := call(t, srv, http.MethodPost, "/api/orders", token, order, idem)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "true", headers.Get("Idempotent-Replayed"))

	status, body, _ = call(t, srv, http.MethodPost, "/api/orders", token, order, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Order with this ID already exists", body["message"])

	status, body, _ = call(t, srv, http.MethodPost, "/api/payments/initiate", token, map[string]string{
		"order_id":     "RML-TEST-1",
		"phone_number": "+254712345678",
	}, nil)
	require.Equal(t, http.StatusOK, status, body)
	crid, _ := body["checkoutRequestId"].(string)
	require.True(t, strings.HasPrefix(crid, "ws_CO_"))

	status, body, _ = call(t, srv, http.MethodGet, "/api/payments/status/"+crid, token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	payment, _ := body["payment"].(map[string]any)
	assert.Equal(t, "pending", payment["status"])

	status, body, _ = call(t, srv, http.MethodGet, "/api/orders/"+id, token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	read, _ := body["order"].(map[string]any)
	assert.Equal(t, "confirmed", read["order_status"])

	status, body, _ = call(t, srv, http.MethodGet, "/api/tracking/order/RML-TEST-1/latest", token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	latest, _ := body["tracking"].(map[string]any)
	assert.Equal(t, "confirmed", latest["status"])

	other := signup(t, srv, "intruder")
	status, _, _ = call(t, srv, http.MethodGet, "/api/orders/"+id, other, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestMetricsEndpointExportsRequests(t *testing.T) {
	srv := newTestServer(t)
	call(t, srv, http.MethodGet, "/api/products", "", nil, nil)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "raamul_sandbox_http_requests_total")
	assert.Contains(t, string(raw), `route="/api/products"`)
}
