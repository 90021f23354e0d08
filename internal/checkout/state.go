package checkout

import (
	"context"
	"time"

	"github.com/angelmondragon/raamul-storefront/internal/orders"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

// State is a step of the order and payment flow.
type State string

const (
	StateIdle             State = "idle"
	StateOrderCreated     State = "order_created"
	StatePaymentInitiated State = "payment_initiated"
	StatePolling          State = "polling"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
	StateCancelled        State = "cancelled"
	StateTimedOut         State = "timed_out"
)

// IsTerminal reports whether the payment attempt has finished.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateTimedOut:
		return true
	}
	return false
}

// awaitingPayment reports whether an STK push is outstanding.
func (s State) awaitingPayment() bool {
	return s == StatePaymentInitiated || s == StatePolling
}

// Snapshot is a read-only view of the flow handed to observers.
type Snapshot struct {
	State             State
	Order             *orders.Order
	CheckoutRequestID string
	PaymentStatus     enums.PaymentStatus
	Total             types.Money
	// RedirectTo and RedirectAfter are set once payment completes.
	RedirectTo    string
	RedirectAfter time.Duration
}

// Observer receives every state change.
type Observer func(Snapshot)

// Notifier presents transient messages to the shopper.
type Notifier interface {
	Success(ctx context.Context, message string)
	Error(ctx context.Context, message string)
	Info(ctx context.Context, message string)
}

type nopNotifier struct{}

func (nopNotifier) Success(context.Context, string) {}
func (nopNotifier) Error(context.Context, string)   {}
func (nopNotifier) Info(context.Context, string)    {}
