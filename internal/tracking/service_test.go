package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
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

func latestHandler(latest string, posts *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/tracking/order/o1/latest":
			if latest == "" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"message":"No tracking found"}`))
				return
			}
			_, _ = w.Write([]byte(`{"tracking":{"order_id":"o1","status":"` + latest + `","created_at":"2026-01-01T10:00:00Z"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/tracking":
			atomic.AddInt32(posts, 1)
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"tracking": map[string]any{
				"id": 9, "order_id": body["order_id"], "status": body["status"], "notes": body["notes"],
				"created_at": "2026-01-01T11:00:00Z",
			}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestAddUpdateAllowsForwardMove(t *testing.T) {
	var posts int32
	svc := newTestService(t, latestHandler("confirmed", &posts))
	entry, err := svc.AddUpdate(context.Background(), UpdateRequest{OrderID: "o1", Status: "Shipped", Notes: "  via courier "})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, entry.Status)
	assert.Equal(t, "via courier", entry.Notes)
	assert.Equal(t, int32(1), atomic.LoadInt32(&posts))
}

func TestAddUpdateRejectsRegression(t *testing.T) {
	var posts int32
	svc := newTestService(t, latestHandler("delivered", &posts))
	_, err := svc.AddUpdate(context.Background(), UpdateRequest{OrderID: "o1", Status: enums.OrderStatusShipped})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, int32(0), atomic.LoadInt32(&posts))
}

func TestAddUpdateWithoutHistory(t *testing.T) {
	var posts int32
	svc := newTestService(t, latestHandler("", &posts))
	_, err := svc.AddUpdate(context.Background(), UpdateRequest{OrderID: "o1", Status: enums.OrderStatusConfirmed})
	require.NoError(t, err)

	_, err = svc.AddUpdate(context.Background(), UpdateRequest{OrderID: "o1", Status: enums.OrderStatusReturned})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestAddUpdateValidatesInput(t *testing.T) {
	var posts int32
	svc := newTestService(t, latestHandler("pending", &posts))
	_, err := svc.AddUpdate(context.Background(), UpdateRequest{OrderID: "o1", Status: "lost"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.AddUpdate(context.Background(), UpdateRequest{Status: enums.OrderStatusShipped})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetByOrderIDReturnsChronologicalHistory(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tracking":[
			{"order_id":"o1","status":"confirmed","created_at":"2026-01-01T11:00:00Z"},
			{"order_id":"o1","status":"pending","created_at":"2026-01-01T10:00:00Z"}
		]}`))
	})
	entries, err := svc.GetByOrderID(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.OrderStatusPending, entries[0].Status)
	assert.Equal(t, enums.OrderStatusConfirmed, entries[1].Status)
}
