package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/raamul-storefront/internal/tracking"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/pagination"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

// AddTracking appends a tracking entry and moves the order to its status. Moves that the
// fulfilment workflow does not allow are rejected.
func (b *Backend) AddTracking(ctx context.Context, actor Actor, req tracking.UpdateRequest) (*tracking.Entry, error) {
	status, err := enums.ParseOrderStatus(string(req.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid tracking status")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	rec := b.orderByRefLocked(strings.TrimSpace(req.OrderID))
	if rec == nil {
		return nil, notFound("Order not found")
	}
	var from enums.OrderStatus
	if latest := b.latestTrackingLocked(rec.order.OrderID); latest != nil {
		from = latest.Status
	}
	if !enums.CanTransitionTracking(from, status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("Cannot move order from %s to %s", from.Label(), status.Label()))
	}

	entry := b.appendTrackingLocked(rec.order.OrderID, status, req.Notes, actor.UserID)
	rec.order.OrderStatus = status
	rec.order.UpdatedAt = &entry.CreatedAt
	b.logAction(ctx, map[string]any{"order_id": rec.order.OrderID, "status": string(status)}, "sandbox.tracking_added")
	return &entry, nil
}

// TrackingFor returns the order's history in creation order.
func (b *Backend) TrackingFor(_ context.Context, actor Actor, orderRef string) ([]tracking.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec := b.orderByRefLocked(orderRef)
	if rec == nil {
		return nil, notFound("Order not found")
	}
	if !actor.IsAdmin() && rec.userID != actor.UserID {
		return nil, forbidden()
	}
	out := []tracking.Entry{}
	for _, entry := range b.tracking {
		if entry.OrderID == rec.order.OrderID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// LatestTracking returns the newest entry of the order.
func (b *Backend) LatestTracking(_ context.Context, actor Actor, orderRef string) (*tracking.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec := b.orderByRefLocked(orderRef)
	if rec == nil {
		return nil, notFound("Order not found")
	}
	if !actor.IsAdmin() && rec.userID != actor.UserID {
		return nil, forbidden()
	}
	latest := b.latestTrackingLocked(rec.order.OrderID)
	if latest == nil {
		return nil, notFound("No tracking information found")
	}
	out := *latest
	return &out, nil
}

func (b *Backend) ListTracking(_ context.Context, filters tracking.ListFilters) tracking.EntryList {
	b.mu.Lock()
	defer b.mu.Unlock()
	matched := []tracking.Entry{}
	for i := len(b.tracking) - 1; i >= 0; i-- {
		entry := b.tracking[i]
		if filters.Status != "" && string(entry.Status) != filters.Status {
			continue
		}
		matched = append(matched, entry)
	}
	start, end, page := pagination.Window(filters.Params, len(matched))
	return tracking.EntryList{Tracking: matched[start:end], Pagination: page}
}

func (b *Backend) DeleteTracking(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, entry := range b.tracking {
		if entry.ID.String() == id {
			b.tracking = append(b.tracking[:i], b.tracking[i+1:]...)
			return nil
		}
	}
	return notFound("Tracking entry not found")
}

func (b *Backend) appendTrackingLocked(orderID string, status enums.OrderStatus, notes, updatedBy string) tracking.Entry {
	entry := tracking.Entry{
		ID:        types.ID(b.nextIDLocked("tracking")),
		OrderID:   orderID,
		Status:    status,
		Notes:     notes,
		UpdatedBy: types.ID(updatedBy),
		CreatedAt: b.timestamp(),
	}
	b.tracking = append(b.tracking, entry)
	return entry
}

func (b *Backend) latestTrackingLocked(orderID string) *tracking.Entry {
	for i := len(b.tracking) - 1; i >= 0; i-- {
		if b.tracking[i].OrderID == orderID {
			return &b.tracking[i]
		}
	}
	return nil
}
