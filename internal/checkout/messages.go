package checkout

import (
	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
)

const (
	msgCartEmpty          = "Your cart is empty."
	msgOrderCreated       = "Order created successfully!"
	msgOrderCreateFailed  = "Failed to create order. Please try again."
	msgOrderNotFound      = "Order not found."
	msgOrderLoadFailed    = "Failed to load order details."
	msgOrderNotLoaded     = "Order details not loaded. Please refresh the page."
	msgAlreadyPaid        = "This order has already been paid."
	msgPhoneRequired      = "Please enter your M-Pesa phone number."
	msgPaymentRequested   = "Payment request sent! Please check your phone for the M-Pesa prompt."
	msgInitiateFailed     = "Failed to initiate payment. Please try again."
	msgPaymentInProgress  = "A payment request is already in progress."
	msgPaymentSuccessful  = "Payment successful! Thank you for your order."
	msgPaymentFailed      = "Payment failed. Please try again."
	msgPaymentPending     = "Payment is still processing. Please wait..."
	msgStatusCheckFailed  = "Could not check payment status. Please try again."
	msgPaymentUnconfirmed = "We could not confirm your payment yet. Check your orders or try again."
	msgSessionExpired     = "Your session has expired. Please sign in again."

	redirectOrders = "/orders"
)

// noticeFor picks the text to show for a failed action: the server's message or a
// local validation message when present, otherwise the fallback.
func noticeFor(err error, fallback string) string {
	if apiErr, ok := apiclient.AsError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		return pkgerrors.UserMessage(err, fallback)
	}
	return fallback
}

// pollRecoverable reports whether a failed status poll is worth repeating on the next tick.
func pollRecoverable(err error) bool {
	if apiclient.IsTransport(err) {
		return true
	}
	for _, code := range []pkgerrors.Code{pkgerrors.CodeDependency, pkgerrors.CodeTimeout, pkgerrors.CodeRateLimit} {
		if pkgerrors.IsCode(err, code) {
			return true
		}
	}
	return false
}
