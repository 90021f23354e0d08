package sandbox

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/raamul-storefront/internal/orders"
	"github.com/angelmondragon/raamul-storefront/internal/payments"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/pagination"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

const (
	msgSTKSent          = "STK push sent. Check your phone to complete the payment."
	resultDescCompleted = "The service request is processed successfully."
	resultDescFailed    = "The balance is insufficient for the transaction."
	resultDescCancelled = "Request cancelled by user."
)

var kenyanPhone = regexp.MustCompile(`^\+254\d{9}$`)

// InitiatePayment records an STK push for the order. orderRef may be the order_id or the
// numeric id.
func (b *Backend) InitiatePayment(ctx context.Context, actor Actor, orderRef, phone string) (*payments.Initiation, error) {
	phone = strings.TrimSpace(phone)
	if !kenyanPhone.MatchString(phone) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid phone number. Use the format +254XXXXXXXXX")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	rec := b.orderByRefLocked(orderRef)
	if rec == nil {
		return nil, notFound("Order not found")
	}
	if !actor.IsAdmin() && rec.userID != actor.UserID {
		return nil, forbidden()
	}
	if rec.order.IsPaid() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Order has already been paid")
	}

	ts := b.timestamp()
	amount := rec.order.Total()
	pay := &paymentRecord{
		order: rec,
		payment: payments.Payment{
			ID:                types.ID(b.nextIDLocked("payment")),
			OrderID:           rec.order.OrderID,
			UserID:            types.ID(rec.userID),
			CheckoutRequestID: "ws_CO_" + compactUUID()[:20],
			MerchantRequestID: uuid.NewString(),
			PhoneNumber:       phone,
			Amount:            &amount,
			Status:            string(enums.PaymentStatusPending),
			PaymentStatus:     string(enums.PaymentStatusPending),
			CreatedAt:         &ts,
			UpdatedAt:         &ts,
		},
	}
	b.payments = append(b.payments, pay)
	b.latestPayment[rec.order.ID.String()] = pay
	rec.order.Payment = types.Embed(orders.Payment{
		Method:            orders.PaymentMethodMpesa,
		Status:            string(enums.PaymentStatusPending),
		PaymentStatus:     string(enums.PaymentStatusPending),
		CheckoutRequestID: pay.payment.CheckoutRequestID,
		PhoneNumber:       phone,
	})
	rec.order.UpdatedAt = &ts

	b.logAction(ctx, map[string]any{
		"order_id":            rec.order.OrderID,
		"checkout_request_id": pay.payment.CheckoutRequestID,
	}, "sandbox.stk_push")
	return &payments.Initiation{CheckoutRequestID: pay.payment.CheckoutRequestID, Message: msgSTKSent}, nil
}

// PaymentStatus reads one STK push and advances its scripted outcome.
func (b *Backend) PaymentStatus(_ context.Context, actor Actor, checkoutRequestID string) (*payments.Payment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.payments {
		if rec.payment.CheckoutRequestID != checkoutRequestID {
			continue
		}
		if !actor.IsAdmin() && rec.order.userID != actor.UserID {
			return nil, forbidden()
		}
		b.advanceLocked(rec)
		out := rec.payment
		return &out, nil
	}
	return nil, notFound("Payment not found")
}

// advanceLocked moves a pending payment one step along the script. The last script entry
// repeats once the script is exhausted.
func (b *Backend) advanceLocked(rec *paymentRecord) {
	if rec.payment.CurrentStatus().IsTerminal() {
		return
	}
	next := b.script[len(b.script)-1]
	if rec.cursor < len(b.script) {
		next = b.script[rec.cursor]
	}
	rec.cursor++
	b.applyPaymentStatusLocked(rec, next)
}

func (b *Backend) applyPaymentStatusLocked(rec *paymentRecord, status enums.PaymentStatus) {
	ts := b.timestamp()
	rec.payment.Status = string(status)
	rec.payment.PaymentStatus = string(status)
	rec.payment.UpdatedAt = &ts
	switch {
	case status.IsSuccessful():
		rec.payment.MpesaReceiptNumber = "SBX" + strings.ToUpper(compactUUID()[:7])
		rec.payment.ResultDesc = resultDescCompleted
	case status == enums.PaymentStatusFailed:
		rec.payment.ResultDesc = resultDescFailed
	case status == enums.PaymentStatusCancelled:
		rec.payment.ResultDesc = resultDescCancelled
	}

	order := &rec.order.order
	orderPayment, _ := order.Payment.Get()
	if orderPayment.CheckoutRequestID != rec.payment.CheckoutRequestID {
		return
	}
	orderPayment.Status = string(status)
	orderPayment.PaymentStatus = string(status)
	order.Payment = types.Embed(orderPayment)
	order.UpdatedAt = &ts
	if status.IsSuccessful() && order.OrderStatus == enums.OrderStatusPending {
		order.OrderStatus = enums.OrderStatusConfirmed
		b.appendTrackingLocked(order.OrderID, enums.OrderStatusConfirmed, "Payment received", "")
	}
}

func (b *Backend) ListPayments(_ context.Context, filters payments.ListFilters) payments.PaymentList {
	b.mu.Lock()
	defer b.mu.Unlock()
	matched := []payments.Payment{}
	for i := len(b.payments) - 1; i >= 0; i-- {
		p := b.payments[i].payment
		if filters.Status != "" && string(p.CurrentStatus()) != filters.Status {
			continue
		}
		matched = append(matched, p)
	}
	start, end, page := pagination.Window(filters.Params, len(matched))
	return payments.PaymentList{Payments: matched[start:end], Pagination: page}
}

func (b *Backend) Payment(_ context.Context, actor Actor, id string) (*payments.Payment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.payments {
		if rec.payment.ID.String() != id {
			continue
		}
		if !actor.IsAdmin() && rec.order.userID != actor.UserID {
			return nil, forbidden()
		}
		out := rec.payment
		return &out, nil
	}
	return nil, notFound("Payment not found")
}

// PaymentsForOrder lists the attempts made for one order, newest first.
func (b *Backend) PaymentsForOrder(_ context.Context, actor Actor, orderRef string) ([]payments.Payment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec := b.orderByRefLocked(orderRef)
	if rec == nil {
		return nil, notFound("Order not found")
	}
	if !actor.IsAdmin() && rec.userID != actor.UserID {
		return nil, forbidden()
	}
	out := []payments.Payment{}
	for i := len(b.payments) - 1; i >= 0; i-- {
		if b.payments[i].order == rec {
			out = append(out, b.payments[i].payment)
		}
	}
	return out, nil
}

func (b *Backend) PaymentsForUser(_ context.Context, actor Actor, userID string) ([]payments.Payment, error) {
	if !actor.IsAdmin() && actor.UserID != userID {
		return nil, forbidden()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []payments.Payment{}
	for i := len(b.payments) - 1; i >= 0; i-- {
		if b.payments[i].order.userID == userID {
			out = append(out, b.payments[i].payment)
		}
	}
	return out, nil
}

func (b *Backend) PaymentStatistics(context.Context) payments.Statistics {
	b.mu.Lock()
	defer b.mu.Unlock()
	var stats payments.Statistics
	total, completed := decimal.Zero, decimal.Zero
	for _, rec := range b.payments {
		p := rec.payment
		stats.TotalPayments++
		amount := decimal.Zero
		if p.Amount != nil {
			amount = p.Amount.Decimal
		}
		total = total.Add(amount)
		status := p.CurrentStatus()
		switch {
		case status.IsSuccessful():
			stats.CompletedPayments++
			completed = completed.Add(amount)
		case status.IsFailure():
			stats.FailedPayments++
		default:
			stats.PendingPayments++
		}
	}
	stats.TotalAmount = types.NewMoney(total)
	stats.CompletedAmount = types.NewMoney(completed)
	return stats
}

// CancelPayment marks a pending payment cancelled.
func (b *Backend) CancelPayment(ctx context.Context, actor Actor, id string) (*payments.Payment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.payments {
		if rec.payment.ID.String() != id {
			continue
		}
		if !actor.IsAdmin() && rec.order.userID != actor.UserID {
			return nil, forbidden()
		}
		if rec.payment.CurrentStatus().IsTerminal() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Payment can no longer be cancelled")
		}
		b.applyPaymentStatusLocked(rec, enums.PaymentStatusCancelled)
		b.logAction(ctx, map[string]any{"payment_id": id}, "sandbox.payment_cancelled")
		out := rec.payment
		return &out, nil
	}
	return nil, notFound("Payment not found")
}

func compactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
