package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/raamul-storefront/internal/orders"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/pagination"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

const noteOrderPlaced = "Order placed"

// CreateOrder stores a new order for the actor. The client-minted order_id must be unique
// and the pricing total must equal the sum of the item subtotals.
func (b *Backend) CreateOrder(ctx context.Context, actor Actor, req orders.CreateRequest) (*orders.Order, error) {
	expected := orders.PricingFor(req.Items)
	if !expected.Total.Equal(req.Pricing.Total) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Order total does not match item subtotals").
			WithDetails([]string{fmt.Sprintf("expected total %s, got %s", expected.Total.String(), req.Pricing.Total.String())})
	}
	status := req.OrderStatus
	if status == "" {
		status = enums.OrderStatusPending
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid order status")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, item := range req.Items {
		if b.productIndexLocked(item.ProductID.String()) < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Product %s not found", item.ProductID))
		}
	}
	for _, rec := range b.orders {
		if rec.order.OrderID == req.OrderID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "Order with this ID already exists")
		}
	}

	payment := req.Payment
	if payment.Method == "" {
		payment.Method = orders.PaymentMethodMpesa
	}
	if payment.Status == "" {
		payment.Status = string(enums.PaymentStatusPending)
	}

	ts := b.timestamp()
	rec := &orderRecord{
		userID: actor.UserID,
		order: orders.Order{
			ID:          types.ID(b.nextIDLocked("order")),
			OrderID:     req.OrderID,
			Customer:    types.Embed(req.Customer),
			Items:       types.Embed(append([]orders.Item(nil), req.Items...)),
			Pricing:     types.Embed(req.Pricing),
			Shipping:    types.Embed(req.Shipping),
			Payment:     types.Embed(payment),
			OrderStatus: status,
			CreatedAt:   &ts,
			UpdatedAt:   &ts,
		},
	}
	b.orders = append(b.orders, rec)
	b.appendTrackingLocked(rec.order.OrderID, status, noteOrderPlaced, actor.UserID)
	b.logAction(ctx, map[string]any{"order_id": req.OrderID, "total": req.Pricing.Total.String()}, "sandbox.order_created")
	order := rec.order
	return &order, nil
}

// Order reads an order by its numeric id. Reading an order whose payment is still
// pending advances the scripted payment outcome.
func (b *Backend) Order(_ context.Context, actor Actor, id string) (*orders.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.orders {
		if rec.order.ID.String() == id {
			return b.readOrderLocked(actor, rec)
		}
	}
	return nil, notFound("Order not found")
}

// OrderByOrderID reads an order by its client-minted order_id.
func (b *Backend) OrderByOrderID(_ context.Context, actor Actor, orderID string) (*orders.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.orders {
		if rec.order.OrderID == orderID {
			return b.readOrderLocked(actor, rec)
		}
	}
	return nil, notFound("Order not found")
}

func (b *Backend) readOrderLocked(actor Actor, rec *orderRecord) (*orders.Order, error) {
	if !actor.IsAdmin() && rec.userID != actor.UserID {
		return nil, forbidden()
	}
	if pay := b.latestPayment[rec.order.ID.String()]; pay != nil {
		b.advanceLocked(pay)
	}
	order := rec.order
	return &order, nil
}

// ListOrders pages orders newest first. A non-empty customerID keeps only that user's orders.
func (b *Backend) ListOrders(_ context.Context, filters orders.ListFilters, customerID string) orders.OrderList {
	b.mu.Lock()
	defer b.mu.Unlock()
	matched := []orders.Order{}
	for i := len(b.orders) - 1; i >= 0; i-- {
		rec := b.orders[i]
		if customerID != "" && rec.userID != customerID {
			continue
		}
		if filters.Status != "" && string(rec.order.OrderStatus) != filters.Status {
			continue
		}
		if filters.Search != "" && !orderMatches(rec.order, filters.Search) {
			continue
		}
		matched = append(matched, rec.order)
	}
	start, end, page := pagination.Window(filters.Params, len(matched))
	return orders.OrderList{Orders: matched[start:end], Pagination: page}
}

func orderMatches(order orders.Order, search string) bool {
	if containsFold(order.OrderID, search) {
		return true
	}
	if customer, ok := order.Customer.Get(); ok {
		return containsFold(customer.Name, search) || containsFold(customer.Email, search)
	}
	return false
}

// UpdateOrder applies the admin fields. A status change is also recorded as tracking.
func (b *Backend) UpdateOrder(ctx context.Context, actor Actor, id string, req orders.UpdateRequest) (*orders.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec := b.orderByIDLocked(id)
	if rec == nil {
		return nil, notFound("Order not found")
	}
	order := &rec.order
	if req.OrderStatus != "" {
		status, err := enums.ParseOrderStatus(string(req.OrderStatus))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid order status")
		}
		if status != order.OrderStatus {
			order.OrderStatus = status
			b.appendTrackingLocked(order.OrderID, status, strings.TrimSpace(req.Notes), actor.UserID)
		}
	}
	if req.Payment != nil {
		order.Payment = types.Embed(*req.Payment)
	}
	if req.Shipping != nil {
		order.Shipping = types.Embed(*req.Shipping)
	}
	ts := b.timestamp()
	order.UpdatedAt = &ts
	b.logAction(ctx, map[string]any{"order_id": order.OrderID}, "sandbox.order_updated")
	out := *order
	return &out, nil
}

func (b *Backend) DeleteOrder(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, rec := range b.orders {
		if rec.order.ID.String() == id {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			delete(b.latestPayment, id)
			return nil
		}
	}
	return notFound("Order not found")
}

func (b *Backend) orderByIDLocked(id string) *orderRecord {
	for _, rec := range b.orders {
		if rec.order.ID.String() == id {
			return rec
		}
	}
	return nil
}

// orderByRefLocked accepts either the numeric id or the client-minted order_id.
func (b *Backend) orderByRefLocked(ref string) *orderRecord {
	for _, rec := range b.orders {
		if rec.order.OrderID == ref {
			return rec
		}
	}
	return b.orderByIDLocked(ref)
}

// OrderCount reports how many orders exist.
func (b *Backend) OrderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}
