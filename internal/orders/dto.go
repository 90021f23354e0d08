package orders

import (
	"strings"
	"time"

	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	"github.com/angelmondragon/raamul-storefront/pkg/pagination"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
	"github.com/shopspring/decimal"
)

// PaymentMethodMpesa is the only payment method the storefront offers.
const PaymentMethodMpesa = "M-Pesa"

type Customer struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
}

type Item struct {
	ProductID types.ID    `json:"product_id" validate:"required"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity" validate:"min=1"`
	Price     types.Money `json:"price"`
	Unit      string      `json:"unit,omitempty"`
}

// LineTotal returns price × quantity.
func (i Item) LineTotal() types.Money {
	return types.NewMoney(i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))))
}

type Pricing struct {
	Subtotal types.Money `json:"subtotal"`
	Tax      types.Money `json:"tax"`
	Shipping types.Money `json:"shipping"`
	Total    types.Money `json:"total"`
}

// PricingFor sums the items under the zero tax and zero shipping policy.
func PricingFor(items []Item) Pricing {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal().Decimal)
	}
	subtotal := types.NewMoney(sum)
	zero := types.MoneyFromInt(0)
	return Pricing{Subtotal: subtotal, Tax: zero, Shipping: zero, Total: subtotal}
}

type Shipping struct {
	Address string `json:"address"`
	Method  string `json:"method"`
}

// Payment is the payment sub-object of an order.
type Payment struct {
	Method            string `json:"method,omitempty"`
	Status            string `json:"status,omitempty"`
	PaymentStatus     string `json:"payment_status,omitempty"`
	CheckoutRequestID string `json:"checkout_request_id,omitempty"`
	PhoneNumber       string `json:"phone_number,omitempty"`
}

// CurrentStatus reads payment_status, falling back to status.
func (p Payment) CurrentStatus() enums.PaymentStatus {
	raw := p.PaymentStatus
	if strings.TrimSpace(raw) == "" {
		raw = p.Status
	}
	return enums.PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// Order is an order as returned by the API. Nested objects may arrive inline or as
// JSON-encoded strings and are normalized on decode.
type Order struct {
	ID          types.ID                 `json:"id,omitempty"`
	OrderID     string                   `json:"order_id"`
	Customer    types.Embedded[Customer] `json:"customer"`
	Items       types.Embedded[[]Item]   `json:"items"`
	Pricing     types.Embedded[Pricing]  `json:"pricing"`
	Shipping    types.Embedded[Shipping] `json:"shipping"`
	Payment     types.Embedded[Payment]  `json:"payment"`
	OrderStatus enums.OrderStatus        `json:"order_status,omitempty"`
	CreatedAt   *time.Time               `json:"created_at,omitempty"`
	UpdatedAt   *time.Time               `json:"updated_at,omitempty"`
}

// PaymentStatus returns the order's current payment status, empty when no payment is attached.
func (o Order) PaymentStatus() enums.PaymentStatus {
	payment, ok := o.Payment.Get()
	if !ok {
		return ""
	}
	return payment.CurrentStatus()
}

// IsPaid reports whether the order's payment has succeeded.
func (o Order) IsPaid() bool {
	return o.PaymentStatus().IsSuccessful()
}

// Total returns pricing.total, or zero when pricing is absent.
func (o Order) Total() types.Money {
	pricing, ok := o.Pricing.Get()
	if !ok {
		return types.MoneyFromInt(0)
	}
	return pricing.Total
}

// CreateRequest is the POST /orders body.
type CreateRequest struct {
	OrderID     string            `json:"order_id" validate:"required"`
	Customer    Customer          `json:"customer"`
	Items       []Item            `json:"items" validate:"required,min=1,dive"`
	Pricing     Pricing           `json:"pricing"`
	Shipping    Shipping          `json:"shipping"`
	Payment     Payment           `json:"payment"`
	OrderStatus enums.OrderStatus `json:"order_status"`
}

// UpdateRequest carries the privileged order fields an admin may change.
type UpdateRequest struct {
	OrderStatus enums.OrderStatus `json:"order_status,omitempty"`
	Payment     *Payment          `json:"payment,omitempty"`
	Shipping    *Shipping         `json:"shipping,omitempty"`
	Notes       string            `json:"notes,omitempty" validate:"max=500"`
}

type ListFilters struct {
	pagination.Params
	Status string
	Search string
}

type OrderList struct {
	Orders     []Order         `json:"orders"`
	Pagination pagination.Page `json:"pagination"`
}
