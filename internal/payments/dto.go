package payments

import (
	"strings"
	"time"

	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	"github.com/angelmondragon/raamul-storefront/pkg/pagination"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

type initiateRequest struct {
	OrderID     string `json:"order_id" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// Initiation is the result of an STK push request.
type Initiation struct {
	CheckoutRequestID string `json:"checkoutRequestId"`
	Message           string `json:"message,omitempty"`
}

type initiateResponse struct {
	CheckoutRequestID      string `json:"checkoutRequestId"`
	CheckoutRequestIDSnake string `json:"checkout_request_id"`
	Message                string `json:"message"`
}

// Payment is one M-Pesa payment attempt.
type Payment struct {
	ID                 types.ID     `json:"id,omitempty"`
	OrderID            string       `json:"order_id,omitempty"`
	UserID             types.ID     `json:"user_id,omitempty"`
	CheckoutRequestID  string       `json:"checkout_request_id,omitempty"`
	MerchantRequestID  string       `json:"merchant_request_id,omitempty"`
	PhoneNumber        string       `json:"phone_number,omitempty"`
	Amount             *types.Money `json:"amount,omitempty"`
	Status             string       `json:"status,omitempty"`
	PaymentStatus      string       `json:"payment_status,omitempty"`
	MpesaReceiptNumber string       `json:"mpesa_receipt_number,omitempty"`
	ResultDesc         string       `json:"result_desc,omitempty"`
	CreatedAt          *time.Time   `json:"created_at,omitempty"`
	UpdatedAt          *time.Time   `json:"updated_at,omitempty"`
}

// CurrentStatus reads payment_status, falling back to status.
func (p Payment) CurrentStatus() enums.PaymentStatus {
	raw := p.PaymentStatus
	if strings.TrimSpace(raw) == "" {
		raw = p.Status
	}
	return enums.PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
}

type ListFilters struct {
	pagination.Params
	Status string
}

type PaymentList struct {
	Payments   []Payment       `json:"payments"`
	Pagination pagination.Page `json:"pagination"`
}

// Statistics is the admin payment summary.
type Statistics struct {
	TotalPayments     int         `json:"total_payments"`
	CompletedPayments int         `json:"completed_payments"`
	PendingPayments   int         `json:"pending_payments"`
	FailedPayments    int         `json:"failed_payments"`
	TotalAmount       types.Money `json:"total_amount"`
	CompletedAmount   types.Money `json:"completed_amount"`
}
