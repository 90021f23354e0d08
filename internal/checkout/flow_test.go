package checkout

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/raamul-storefront/api/routes"
	"github.com/angelmondragon/raamul-storefront/internal/cart"
	"github.com/angelmondragon/raamul-storefront/internal/orders"
	"github.com/angelmondragon/raamul-storefront/internal/payments"
	"github.com/angelmondragon/raamul-storefront/internal/products"
	"github.com/angelmondragon/raamul-storefront/internal/sandbox"
	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	"github.com/angelmondragon/raamul-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/localstore"
	"github.com/angelmondragon/raamul-storefront/pkg/metrics"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

type recordingNotifier struct {
	mu      sync.Mutex
	success []string
	errors  []string
	infos   []string
}

func (n *recordingNotifier) Success(_ context.Context, msg string) { n.add(&n.success, msg) }
func (n *recordingNotifier) Error(_ context.Context, msg string)   { n.add(&n.errors, msg) }
func (n *recordingNotifier) Info(_ context.Context, msg string)    { n.add(&n.infos, msg) }

func (n *recordingNotifier) add(dst *[]string, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	*dst = append(*dst, msg)
}

func (n *recordingNotifier) snapshot() (success, errs, infos []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.success...), append([]string(nil), n.errors...), append([]string(nil), n.infos...)
}

type harness struct {
	backend *sandbox.Backend
	actor   sandbox.Actor
	cart    *cart.Cart
	flow    *Flow
	notes   *recordingNotifier

	statesMu sync.Mutex
	states   []State

	orderReads   atomic.Int32
	failCreates  atomic.Int32
	orderIDCalls atomic.Int32
	// readStatus, when set, answers every order read with that HTTP status.
	readStatus atomic.Int32
}

type harnessOptions struct {
	script      []string
	maxAttempts int
	interval    time.Duration
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	if opts.interval == 0 {
		opts.interval = 10 * time.Millisecond
	}
	if opts.maxAttempts == 0 {
		opts.maxAttempts = 10
	}
	sandboxCfg := config.SandboxConfig{
		JWTSecret:        "checkout-secret",
		JWTIssuer:        "raamul-test",
		JWTExpiration:    time.Hour,
		PaymentScript:    opts.script,
		ArgonMemoryKB:    64,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
	backend, err := sandbox.New(sandbox.Params{
		Config: sandboxCfg,
		Catalog: []products.ProductInput{
			{Name: "A", SKU: "A", Price: types.MoneyFromInt(1000), StockQuantity: 10},
			{Name: "B", SKU: "B", Price: types.MoneyFromInt(500), StockQuantity: 10},
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	signed, err := backend.Signup(ctx, sandbox.SignupRequest{
		Username: "shopper",
		Email:    "shopper@example.com",
		Phone:    "+254712345678",
		Location: "Nairobi",
		Password: "secret123",
	})
	require.NoError(t, err)

	h := &harness{
		backend: backend,
		actor:   sandbox.Actor{UserID: signed.User.ID.String(), Role: signed.User.Role},
		notes:   &recordingNotifier{},
	}

	router := routes.NewRouter(routes.Params{
		Config:   &config.Config{Sandbox: sandboxCfg},
		Backend:  backend,
		Registry: prometheus.NewRegistry(),
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && isOrderRead(r.URL.Path) {
			h.orderReads.Add(1)
			if status := int(h.readStatus.Load()); status != 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = fmt.Fprintf(w, `{"message":%q}`, http.StatusText(status))
				return
			}
		}
		if r.Method == http.MethodPost && r.URL.Path == "/api/orders" && h.failCreates.Load() > 0 {
			h.failCreates.Add(-1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"Service unavailable"}`))
			return
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL+"/api", apiclient.WithTokenSource(apiclient.TokenFunc(func() string {
		return signed.Token
	})))
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.ServiceParams{API: client})
	require.NoError(t, err)
	paymentSvc, err := payments.NewService(payments.ServiceParams{API: client})
	require.NoError(t, err)

	h.cart, err = cart.Load(ctx, localstore.NewMemory(), nil)
	require.NoError(t, err)

	h.flow, err = NewFlow(FlowParams{
		Orders:   orderSvc,
		Payments: paymentSvc,
		Cart:     h.cart,
		Notifier: h.notes,
		Observer: func(s Snapshot) {
			h.statesMu.Lock()
			h.states = append(h.states, s.State)
			h.statesMu.Unlock()
		},
		Metrics: metrics.NewPollMetrics(prometheus.NewRegistry()),
		Config: config.CheckoutConfig{
			PollInterval:    opts.interval,
			PollMaxAttempts: opts.maxAttempts,
			SuccessDelay:    2 * time.Second,
		},
		NewOrderID: func() string {
			return fmt.Sprintf("ORD-TEST-%d", h.orderIDCalls.Add(1))
		},
	})
	require.NoError(t, err)
	return h
}

func isOrderRead(path string) bool {
	rest, ok := strings.CutPrefix(path, "/api/orders/")
	return ok && rest != "" && !strings.Contains(rest, "/")
}

func (h *harness) fillCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.cart.Add(ctx, cart.Item{ProductID: "1", Name: "A", Price: types.MoneyFromInt(1000)}, 2))
	require.NoError(t, h.cart.Add(ctx, cart.Item{ProductID: "2", Name: "B", Price: types.MoneyFromInt(500)}, 1))
}

func (h *harness) placeAndInitiate(t *testing.T) *orders.Order {
	t.Helper()
	h.fillCart(t)
	ctx := context.Background()
	order, err := h.flow.PlaceOrder(ctx, orders.Customer{Name: "Shopper", Email: "shopper@example.com"}, "Nairobi")
	require.NoError(t, err)
	_, err = h.flow.InitiatePayment(ctx, "0712 345 678")
	require.NoError(t, err)
	return order
}

func (h *harness) observedStates() []State {
	h.statesMu.Lock()
	defer h.statesMu.Unlock()
	return append([]State(nil), h.states...)
}

func TestCheckoutCompletesAfterPolling(t *testing.T) {
	h := newHarness(t, harnessOptions{script: []string{"pending", "pending", "completed"}})
	order := h.placeAndInitiate(t)

	assert.Equal(t, "2500", order.Total().String())
	assert.True(t, h.cart.IsEmpty())

	state, err := h.flow.AwaitPayment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
	assert.EqualValues(t, 3, h.orderReads.Load())

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 3, h.orderReads.Load(), "polling must stop after a terminal status")

	snap := h.flow.Snapshot()
	assert.Equal(t, "/orders", snap.RedirectTo)
	assert.Equal(t, 2*time.Second, snap.RedirectAfter)
	assert.True(t, snap.Order.IsPaid())

	assert.Equal(t, []State{StateOrderCreated, StatePaymentInitiated, StatePolling, StateCompleted}, h.observedStates())
	success, _, _ := h.notes.snapshot()
	assert.Contains(t, success, msgPaymentSuccessful)
}

func TestCheckoutTimesOutWhilePending(t *testing.T) {
	h := newHarness(t, harnessOptions{script: []string{"pending"}, maxAttempts: 3})
	h.placeAndInitiate(t)

	state, err := h.flow.AwaitPayment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateTimedOut, state)
	assert.Equal(t, StateTimedOut, h.flow.State())
	assert.EqualValues(t, 3, h.orderReads.Load())

	_, errs, _ := h.notes.snapshot()
	assert.Contains(t, errs, msgPaymentUnconfirmed)
}

func TestPollingStopsWhenSessionExpires(t *testing.T) {
	h := newHarness(t, harnessOptions{script: []string{"pending"}})
	h.placeAndInitiate(t)
	h.readStatus.Store(http.StatusUnauthorized)

	state, err := h.flow.AwaitPayment(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Equal(t, StatePaymentInitiated, state)
	assert.Equal(t, StatePaymentInitiated, h.flow.State())
	assert.EqualValues(t, 1, h.orderReads.Load())

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, h.orderReads.Load(), "polling must stop after a 401")

	_, errs, _ := h.notes.snapshot()
	assert.Equal(t, []string{msgSessionExpired}, errs)
}

func TestPollingRidesOutServerErrors(t *testing.T) {
	h := newHarness(t, harnessOptions{script: []string{"pending"}, maxAttempts: 3})
	h.placeAndInitiate(t)
	h.readStatus.Store(http.StatusServiceUnavailable)

	state, err := h.flow.AwaitPayment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateTimedOut, state)
	assert.EqualValues(t, 3, h.orderReads.Load())

	_, errs, _ := h.notes.snapshot()
	assert.Equal(t, []string{msgPaymentUnconfirmed}, errs)
}

func TestPollTickWaitsForRunningCheck(t *testing.T) {
	h := newHarness(t, harnessOptions{script: []string{"pending"}, maxAttempts: 2})
	h.placeAndInitiate(t)

	require.True(t, h.flow.acquire())
	done := make(chan State, 1)
	go func() {
		state, _ := h.flow.AwaitPayment(context.Background())
		done <- state
	}()

	// many intervals pass while the check holds the flag
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StatePolling, h.flow.State())
	assert.EqualValues(t, 0, h.orderReads.Load())
	h.flow.release()

	select {
	case state := <-done:
		assert.Equal(t, StateTimedOut, state)
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitPayment did not return")
	}
	assert.EqualValues(t, 2, h.orderReads.Load(), "waiting ticks must not use up poll attempts")
}

func TestCheckoutFailureReturnsToOrderCreated(t *testing.T) {
	cases := map[string]struct {
		script []string
		want   State
	}{
		"failed":    {script: []string{"pending", "failed"}, want: StateFailed},
		"cancelled": {script: []string{"cancelled"}, want: StateCancelled},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, harnessOptions{script: tc.script})
			h.placeAndInitiate(t)

			state, err := h.flow.AwaitPayment(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, state)
			assert.Equal(t, StateOrderCreated, h.flow.State())

			_, errs, _ := h.notes.snapshot()
			assert.Contains(t, errs, msgPaymentFailed)

			_, err = h.flow.InitiatePayment(context.Background(), "+254712345678")
			require.NoError(t, err, "the same order may be paid again")
			assert.Equal(t, StatePaymentInitiated, h.flow.State())
		})
	}
}

func TestCheckNow(t *testing.T) {
	h := newHarness(t, harnessOptions{script: []string{"pending", "completed"}})
	h.placeAndInitiate(t)
	ctx := context.Background()

	state, err := h.flow.CheckNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatePaymentInitiated, state)

	state, err = h.flow.CheckNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)

	state, err = h.flow.CheckNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)

	assert.EqualValues(t, 0, h.orderReads.Load())
	_, _, infos := h.notes.snapshot()
	assert.Contains(t, infos, msgPaymentPending)
	assert.Contains(t, infos, msgAlreadyPaid)
}

func TestCheckNowRejectsOverlappingChecks(t *testing.T) {
	h := newHarness(t, harnessOptions{script: []string{"pending"}})
	h.placeAndInitiate(t)

	require.True(t, h.flow.acquire())
	_, err := h.flow.CheckNow(context.Background())
	assert.ErrorIs(t, err, ErrCheckInFlight)
	h.flow.release()

	_, err = h.flow.CheckNow(context.Background())
	assert.NoError(t, err)
}

func TestCheckNowStopsRunningPoll(t *testing.T) {
	h := newHarness(t, harnessOptions{script: []string{"pending", "completed"}, interval: 500 * time.Millisecond})
	h.placeAndInitiate(t)

	done := make(chan State, 1)
	go func() {
		state, _ := h.flow.AwaitPayment(context.Background())
		done <- state
	}()
	require.Eventually(t, func() bool { return h.flow.State() == StatePolling }, time.Second, 5*time.Millisecond)

	for i := 0; i < 2 && h.flow.State() != StateCompleted; i++ {
		_, err := h.flow.CheckNow(context.Background())
		require.NoError(t, err)
	}

	select {
	case state := <-done:
		assert.Equal(t, StateCompleted, state)
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitPayment did not return after the payment settled")
	}
}

func TestCheckNowWithoutPayment(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	_, err := h.flow.CheckNow(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestLoadOrderAlreadyPaid(t *testing.T) {
	h := newHarness(t, harnessOptions{script: []string{"completed"}})
	h.fillCart(t)
	ctx := context.Background()
	order, err := h.flow.PlaceOrder(ctx, orders.Customer{Name: "Shopper"}, "Nairobi")
	require.NoError(t, err)

	initiation, err := h.backend.InitiatePayment(ctx, h.actor, order.OrderID, "+254712345678")
	require.NoError(t, err)
	_, err = h.backend.PaymentStatus(ctx, h.actor, initiation.CheckoutRequestID)
	require.NoError(t, err)

	h.flow.Reset()
	loaded, err := h.flow.LoadOrder(ctx, order.ID.String())
	require.NoError(t, err)
	assert.True(t, loaded.IsPaid())
	assert.Equal(t, StateCompleted, h.flow.State())

	_, err = h.flow.InitiatePayment(ctx, "+254712345678")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, _, infos := h.notes.snapshot()
	assert.Contains(t, infos, msgAlreadyPaid)
}

func TestLoadOrderNotFound(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	_, err := h.flow.LoadOrder(context.Background(), "404")
	require.Error(t, err)
	assert.Equal(t, StateIdle, h.flow.State())
	_, errs, _ := h.notes.snapshot()
	assert.Contains(t, errs, msgOrderNotFound)
}

func TestPlaceOrderFailureKeepsCartAndOrderID(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.fillCart(t)
	ctx := context.Background()
	customer := orders.Customer{Name: "Shopper"}

	h.failCreates.Store(1)
	_, err := h.flow.PlaceOrder(ctx, customer, "Nairobi")
	require.Error(t, err)
	assert.Equal(t, 3, h.cart.Count())
	assert.Equal(t, StateIdle, h.flow.State())
	_, errs, _ := h.notes.snapshot()
	assert.Contains(t, errs, "Service unavailable")

	order, err := h.flow.PlaceOrder(ctx, customer, "Nairobi")
	require.NoError(t, err)
	assert.Equal(t, "ORD-TEST-1", order.OrderID)
	assert.EqualValues(t, 1, h.orderIDCalls.Load())
	assert.True(t, h.cart.IsEmpty())
}

func TestPlaceOrderMintsNewIDWhenCartChanges(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.fillCart(t)
	ctx := context.Background()

	h.failCreates.Store(1)
	_, err := h.flow.PlaceOrder(ctx, orders.Customer{Name: "Shopper"}, "Nairobi")
	require.Error(t, err)

	require.NoError(t, h.cart.UpdateQuantity(ctx, "1", 3))
	order, err := h.flow.PlaceOrder(ctx, orders.Customer{Name: "Shopper"}, "Nairobi")
	require.NoError(t, err)
	assert.Equal(t, "ORD-TEST-2", order.OrderID)
	assert.Equal(t, "3500", order.Total().String())
}

func TestPlaceOrderRejectsEmptyCart(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	_, err := h.flow.PlaceOrder(context.Background(), orders.Customer{Name: "Shopper"}, "Nairobi")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, errs, _ := h.notes.snapshot()
	assert.Contains(t, errs, msgCartEmpty)
}
