package enums

import (
	"fmt"
	"strings"
)

// PaymentStatus is the M-Pesa payment state reported by the API.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusSuccess   PaymentStatus = "success"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusCompleted,
	PaymentStatusSuccess,
	PaymentStatusFailed,
	PaymentStatusCancelled,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsSuccessful reports a paid outcome. The API uses both "completed" and "success".
func (p PaymentStatus) IsSuccessful() bool {
	return p == PaymentStatusCompleted || p == PaymentStatusSuccess
}

// IsFailure reports an outcome that allows the customer to retry.
func (p PaymentStatus) IsFailure() bool {
	return p == PaymentStatusFailed || p == PaymentStatusCancelled
}

// IsTerminal reports whether polling should stop.
func (p PaymentStatus) IsTerminal() bool {
	return p.IsSuccessful() || p.IsFailure()
}

// ParsePaymentStatus converts raw input into a PaymentStatus. Matching ignores case and padding.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
