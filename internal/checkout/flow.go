// Package checkout turns the cart into an order and follows its M-Pesa payment to an outcome.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/raamul-storefront/internal/cart"
	"github.com/angelmondragon/raamul-storefront/internal/orders"
	"github.com/angelmondragon/raamul-storefront/internal/payments"
	"github.com/angelmondragon/raamul-storefront/internal/session"
	"github.com/angelmondragon/raamul-storefront/pkg/config"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/metrics"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultMaxAttempts  = 40
)

var (
	// ErrCheckInFlight is returned by CheckNow while another status check is running.
	ErrCheckInFlight = errors.New("payment status check already in flight")

	errStillPending = errors.New("payment still pending")
)

// FlowParams groups dependencies for a checkout flow.
type FlowParams struct {
	Orders     orders.Service
	Payments   payments.Service
	Cart       *cart.Cart
	Notifier   Notifier
	Observer   Observer
	Logger     *logger.Logger
	Metrics    *metrics.PollMetrics
	Config     config.CheckoutConfig
	NewOrderID func() string
}

// Flow drives one shopper through order placement and payment. It is safe for use from
// several goroutines; status checks never overlap.
type Flow struct {
	orders   orders.Service
	payments payments.Service
	cart     *cart.Cart
	notify   Notifier
	observe  Observer
	logg     *logger.Logger
	metrics  *metrics.PollMetrics
	cfg      config.CheckoutConfig
	newID    func() string

	mu                sync.Mutex
	state             State
	order             *orders.Order
	checkoutRequestID string
	paymentStatus     enums.PaymentStatus
	inFlight          bool
	released          chan struct{} // closed when the in-flight check ends
	stopPolling       context.CancelFunc

	// draftOrderID is reused while a failed submission is retried with the same cart.
	draftOrderID     string
	draftFingerprint string
}

// NewFlow builds an idle checkout flow.
func NewFlow(params FlowParams) (*Flow, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders service is required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payments service is required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is required")
	}
	notify := params.Notifier
	if notify == nil {
		notify = nopNotifier{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	cfg := params.Config
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollMaxAttempts <= 0 && cfg.PollMaxWait <= 0 {
		cfg.PollMaxAttempts = defaultMaxAttempts
	}
	if cfg.ShippingMethod == "" {
		cfg.ShippingMethod = "Standard Delivery"
	}
	newID := params.NewOrderID
	if newID == nil {
		newID = orders.GenerateOrderID
	}
	return &Flow{
		orders:   params.Orders,
		payments: params.Payments,
		cart:     params.Cart,
		notify:   notify,
		observe:  params.Observer,
		logg:     logg,
		metrics:  params.Metrics,
		cfg:      cfg,
		newID:    newID,
		state:    StateIdle,
	}, nil
}

// CustomerFromUser derives the order contact block and delivery address from the signed-in user.
func CustomerFromUser(user session.User) (orders.Customer, string) {
	return orders.Customer{Name: user.Username, Email: user.Email, Phone: user.Phone}, user.Location
}

// State returns the current step.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Snapshot returns the current view of the flow.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// PlaceOrder submits the cart as a new order. The cart is cleared only after the API
// accepts the order; on failure it is kept and the same order id is reused on retry.
func (f *Flow) PlaceOrder(ctx context.Context, customer orders.Customer, address string) (*orders.Order, error) {
	lines := f.cart.Lines()
	if len(lines) == 0 {
		f.notify.Error(ctx, msgCartEmpty)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgCartEmpty)
	}

	req := orders.CreateRequest{
		OrderID:     f.draftID(lines),
		Customer:    customer,
		Items:       itemsFromLines(lines),
		Shipping:    orders.Shipping{Address: strings.TrimSpace(address), Method: f.cfg.ShippingMethod},
		Payment:     orders.Payment{Method: orders.PaymentMethodMpesa, Status: string(enums.PaymentStatusPending)},
		OrderStatus: enums.OrderStatusPending,
	}
	req.Pricing = orders.PricingFor(req.Items)

	ctx = f.logg.WithOrderID(ctx, req.OrderID)
	order, err := f.orders.Create(ctx, req)
	if err != nil {
		f.logg.WarnErr(ctx, "order creation failed; cart kept", err)
		f.notify.Error(ctx, noticeFor(err, msgOrderCreateFailed))
		return nil, err
	}

	if err := f.cart.Clear(ctx); err != nil {
		f.logg.WarnErr(ctx, "clearing cart after order creation failed", err)
	}
	f.mu.Lock()
	f.draftOrderID, f.draftFingerprint = "", ""
	f.mu.Unlock()

	f.transition(func() {
		f.state = StateOrderCreated
		f.order = order
		f.checkoutRequestID = ""
		f.paymentStatus = order.PaymentStatus()
	})
	f.logg.Info(ctx, "order created")
	f.notify.Success(ctx, msgOrderCreated)
	return order, nil
}

// LoadOrder opens the payment step for an existing order. An order that is already
// paid moves straight to completed.
func (f *Flow) LoadOrder(ctx context.Context, id string) (*orders.Order, error) {
	if f.State().awaitingPayment() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgPaymentInProgress)
	}
	order, err := f.orders.Get(ctx, id)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			f.notify.Error(ctx, msgOrderNotFound)
		} else {
			f.notify.Error(ctx, msgOrderLoadFailed)
		}
		return nil, err
	}

	paid := order.IsPaid()
	f.transition(func() {
		f.order = order
		f.checkoutRequestID = ""
		f.paymentStatus = order.PaymentStatus()
		if paid {
			f.state = StateCompleted
		} else {
			f.state = StateOrderCreated
		}
	})
	if paid {
		f.notify.Info(ctx, msgAlreadyPaid)
	}
	return order, nil
}

// InitiatePayment sends the STK push for the current order.
func (f *Flow) InitiatePayment(ctx context.Context, phone string) (*payments.Initiation, error) {
	f.mu.Lock()
	state, order := f.state, f.order
	f.mu.Unlock()

	switch {
	case state == StateCompleted:
		f.notify.Info(ctx, msgAlreadyPaid)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgAlreadyPaid)
	case state.awaitingPayment():
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgPaymentInProgress)
	case order == nil || order.OrderID == "":
		f.notify.Error(ctx, msgOrderNotLoaded)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgOrderNotLoaded)
	}
	if strings.TrimSpace(phone) == "" {
		f.notify.Error(ctx, msgPhoneRequired)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgPhoneRequired)
	}

	ctx = f.logg.WithOrderID(ctx, order.OrderID)
	initiation, err := f.payments.Initiate(ctx, order.OrderID, payments.FormatPhoneNumber(phone))
	if err != nil {
		f.logg.WarnErr(ctx, "payment initiation failed", err)
		f.notify.Error(ctx, noticeFor(err, msgInitiateFailed))
		return nil, err
	}

	f.transition(func() {
		f.state = StatePaymentInitiated
		f.checkoutRequestID = initiation.CheckoutRequestID
		f.paymentStatus = enums.PaymentStatusPending
	})
	f.logg.Info(f.logg.WithCheckoutRequestID(ctx, initiation.CheckoutRequestID), "stk push sent")
	f.notify.Success(ctx, msgPaymentRequested)
	return initiation, nil
}

// AwaitPayment re-reads the order every poll interval until its payment reaches a terminal
// status, the attempt or time budget runs out, CheckNow settles it, or ctx is done.
// Transport failures and 5xx, timeout or rate-limit answers are logged and the loop carries
// on. Any other failure, such as an expired session, ends the loop: the flow goes back to
// payment_initiated and the error is returned. A tick that lands while CheckNow is running
// waits for it instead of using up one of the poll attempts.
func (f *Flow) AwaitPayment(ctx context.Context) (State, error) {
	f.mu.Lock()
	if f.state != StatePaymentInitiated {
		state := f.state
		f.mu.Unlock()
		if state == StatePolling {
			return state, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is already being polled")
		}
		return state, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment awaiting confirmation")
	}
	pollCtx, stop := context.WithCancel(ctx)
	f.stopPolling = stop
	orderID := f.order.ID
	ctx = f.logg.WithCheckoutRequestID(f.logg.WithOrderID(ctx, f.order.OrderID), f.checkoutRequestID)
	f.mu.Unlock()
	defer stop()

	f.transition(func() { f.state = StatePolling })

	err := f.wait(pollCtx, f.cfg.PollInterval)
	if err == nil {
		err = retry.Do(pollCtx, f.backoff(), func(ctx context.Context) error {
			return f.pollOnce(ctx, string(orderID))
		})
	}

	f.mu.Lock()
	f.stopPolling = nil
	state := f.state
	f.mu.Unlock()

	switch {
	case state != StatePolling:
		// settled by a poll or by CheckNow
		return f.outcome(state), nil
	case errors.Is(err, errStillPending):
		f.transition(func() { f.state = StateTimedOut })
		f.metrics.IncOutcome(string(StateTimedOut))
		f.logg.Warn(ctx, "payment polling exhausted without a terminal status")
		f.notify.Error(ctx, msgPaymentUnconfirmed)
		return StateTimedOut, nil
	default:
		f.transition(func() { f.state = StatePaymentInitiated })
		return StatePaymentInitiated, err
	}
}

// CheckNow asks the payments endpoint for the STK push outcome right away. A terminal
// answer settles the flow and stops a running poll loop.
func (f *Flow) CheckNow(ctx context.Context) (State, error) {
	f.mu.Lock()
	state, checkoutRequestID := f.state, f.checkoutRequestID
	if !state.awaitingPayment() || checkoutRequestID == "" {
		f.mu.Unlock()
		if state == StateCompleted {
			f.notify.Info(ctx, msgAlreadyPaid)
			return state, nil
		}
		return state, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment awaiting confirmation")
	}
	if f.inFlight {
		f.mu.Unlock()
		return state, ErrCheckInFlight
	}
	f.holdLocked()
	f.mu.Unlock()
	defer f.release()

	ctx = f.logg.WithCheckoutRequestID(ctx, checkoutRequestID)
	f.metrics.IncAttempt(metrics.PollSourceManual)
	payment, err := f.payments.CheckStatus(ctx, checkoutRequestID)
	if err != nil {
		f.logg.WarnErr(ctx, "manual payment status check failed", err)
		f.notify.Error(ctx, msgStatusCheckFailed)
		return f.State(), err
	}

	status := payment.CurrentStatus()
	if !status.IsTerminal() {
		f.mu.Lock()
		f.paymentStatus = status
		f.mu.Unlock()
		f.notify.Info(ctx, msgPaymentPending)
		return f.State(), nil
	}
	if f.settle(ctx, status, nil) {
		f.mu.Lock()
		if f.stopPolling != nil {
			f.stopPolling()
		}
		f.mu.Unlock()
	}
	return f.outcome(f.State()), nil
}

// Reset returns the flow to idle, e.g. when the shopper leaves the payment step.
func (f *Flow) Reset() {
	f.mu.Lock()
	if f.stopPolling != nil {
		f.stopPolling()
	}
	f.mu.Unlock()
	f.transition(func() {
		f.state = StateIdle
		f.order = nil
		f.checkoutRequestID = ""
		f.paymentStatus = ""
	})
}

// pollOnce reads the order once. It returns nil once the payment is settled, a retryable
// errStillPending to keep polling, or the error that should end the loop.
func (f *Flow) pollOnce(ctx context.Context, orderID string) error {
	if err := f.acquireWait(ctx); err != nil {
		return err
	}
	defer f.release()
	if !f.State().awaitingPayment() {
		// CheckNow settled it while this tick waited
		return nil
	}

	f.metrics.IncAttempt(metrics.PollSourceInterval)
	order, err := f.orders.Get(ctx, orderID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if pollRecoverable(err) {
			f.logg.WarnErr(ctx, "payment status poll failed", err)
			return retry.RetryableError(errStillPending)
		}
		f.logg.WarnErr(ctx, "payment status poll stopped", err)
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			f.notify.Error(ctx, msgSessionExpired)
		} else {
			f.notify.Error(ctx, noticeFor(err, msgStatusCheckFailed))
		}
		return err
	}
	status := order.PaymentStatus()
	if !status.IsTerminal() {
		f.mu.Lock()
		f.paymentStatus = status
		f.mu.Unlock()
		return retry.RetryableError(errStillPending)
	}
	f.settle(ctx, status, order)
	return nil
}

// settle applies a terminal payment status once. It reports whether this call did so.
func (f *Flow) settle(ctx context.Context, status enums.PaymentStatus, refreshed *orders.Order) bool {
	f.mu.Lock()
	if !f.state.awaitingPayment() {
		f.mu.Unlock()
		return false
	}
	f.mu.Unlock()

	if status.IsSuccessful() {
		f.transition(func() {
			f.state = StateCompleted
			f.paymentStatus = status
			if refreshed != nil {
				f.order = refreshed
			}
		})
		f.metrics.IncOutcome(string(StateCompleted))
		f.logg.Info(ctx, "payment completed")
		f.notify.Success(ctx, msgPaymentSuccessful)
		return true
	}

	outcome := StateFailed
	if status == enums.PaymentStatusCancelled {
		outcome = StateCancelled
	}
	f.transition(func() {
		f.state = outcome
		f.paymentStatus = status
		if refreshed != nil {
			f.order = refreshed
		}
	})
	f.metrics.IncOutcome(string(outcome))
	f.logg.Info(f.logg.WithField(ctx, "payment_status", status), "payment did not complete")
	f.notify.Error(ctx, msgPaymentFailed)
	// the shopper may resubmit the same order
	f.transition(func() {
		f.state = StateOrderCreated
		f.checkoutRequestID = ""
	})
	return true
}

// outcome maps the settled state back to the result of the attempt. After a failed or
// cancelled payment the flow is back at order_created; the payment status says which.
func (f *Flow) outcome(state State) State {
	if state != StateOrderCreated {
		return state
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.paymentStatus {
	case enums.PaymentStatusCancelled:
		return StateCancelled
	case enums.PaymentStatusFailed:
		return StateFailed
	}
	return state
}

func (f *Flow) backoff() retry.Backoff {
	b := retry.NewConstant(f.cfg.PollInterval)
	if f.cfg.PollMaxAttempts > 0 {
		b = retry.WithMaxRetries(uint64(f.cfg.PollMaxAttempts-1), b)
	}
	if f.cfg.PollMaxWait > 0 {
		b = retry.WithMaxDuration(f.cfg.PollMaxWait, b)
	}
	return b
}

func (f *Flow) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *Flow) acquire() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return false
	}
	f.holdLocked()
	return true
}

// acquireWait takes the in-flight flag, waiting out a running check.
func (f *Flow) acquireWait(ctx context.Context) error {
	for !f.acquire() {
		f.mu.Lock()
		released := f.released
		f.mu.Unlock()

		f.logg.Debug(ctx, "status check in flight; waiting before polling")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-released:
		}
	}
	return nil
}

func (f *Flow) holdLocked() {
	f.inFlight = true
	f.released = make(chan struct{})
}

func (f *Flow) release() {
	f.mu.Lock()
	f.inFlight = false
	close(f.released)
	f.mu.Unlock()
}

func (f *Flow) transition(mutate func()) {
	f.mu.Lock()
	mutate()
	snap := f.snapshotLocked()
	f.mu.Unlock()
	if f.observe != nil {
		f.observe(snap)
	}
}

func (f *Flow) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:             f.state,
		CheckoutRequestID: f.checkoutRequestID,
		PaymentStatus:     f.paymentStatus,
	}
	if f.order != nil {
		order := *f.order
		snap.Order = &order
		snap.Total = order.Total()
	}
	if f.state == StateCompleted {
		snap.RedirectTo = redirectOrders
		snap.RedirectAfter = f.cfg.SuccessDelay
	}
	return snap
}

// draftID returns the order id for this cart, minting a new one when the cart changed
// since the last failed submission.
func (f *Flow) draftID(lines []cart.Line) string {
	fingerprint := cartFingerprint(lines)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draftOrderID == "" || f.draftFingerprint != fingerprint {
		f.draftOrderID = f.newID()
		f.draftFingerprint = fingerprint
	}
	return f.draftOrderID
}

func cartFingerprint(lines []cart.Line) string {
	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "%s:%d:%s;", line.ProductID, line.Quantity, line.Price.String())
	}
	return b.String()
}

func itemsFromLines(lines []cart.Line) []orders.Item {
	items := make([]orders.Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, orders.Item{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Unit:      line.Unit,
		})
	}
	return items
}
