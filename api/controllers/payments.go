package controllers

import (
	"net/http"

	"github.com/angelmondragon/raamul-storefront/api/responses"
	"github.com/angelmondragon/raamul-storefront/internal/payments"
	"github.com/angelmondragon/raamul-storefront/internal/sandbox"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/validators"
)

type initiatePayload struct {
	OrderID     string `json:"order_id" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
}

type paymentPayload struct {
	Message string            `json:"message,omitempty"`
	Payment *payments.Payment `json:"payment"`
}

type paymentsPayload struct {
	Payments []payments.Payment `json:"payments"`
}

// PaymentInitiate starts an M-Pesa STK push for an order.
func PaymentInitiate(b *sandbox.Backend, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req initiatePayload
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		initiation, err := b.InitiatePayment(r.Context(), actorFrom(r), req.OrderID, req.PhoneNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, initiation)
	}
}

// PaymentStatus reports the push identified by its checkout request id.
func PaymentStatus(b *sandbox.Backend, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		crid, err := pathParam(r, "checkoutRequestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := b.PaymentStatus(r.Context(), actorFrom(r), crid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentPayload{Payment: payment})
	}
}

func PaymentList(b *sandbox.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, b.ListPayments(r.Context(), payments.ListFilters{
			Params: pageParams(r),
			Status: queryValue(r, "status"),
		}))
	}
}

func PaymentDetail(b *sandbox.Backend, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := b.Payment(r.Context(), actorFrom(r), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentPayload{Payment: payment})
	}
}

func PaymentsForOrder(b *sandbox.Backend, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderRef, err := pathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := b.PaymentsForOrder(r.Context(), actorFrom(r), orderRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentsPayload{Payments: list})
	}
}

func PaymentsForUser(b *sandbox.Backend, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := b.PaymentsForUser(r.Context(), actorFrom(r), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentsPayload{Payments: list})
	}
}

func PaymentStatistics(b *sandbox.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"statistics": b.PaymentStatistics(r.Context())})
	}
}

func PaymentCancel(b *sandbox.Backend, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := b.CancelPayment(r.Context(), actorFrom(r), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentPayload{Message: "Payment cancelled", Payment: payment})
	}
}
