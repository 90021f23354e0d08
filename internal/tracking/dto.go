package tracking

import (
	"time"

	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	"github.com/angelmondragon/raamul-storefront/pkg/pagination"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

// Entry is one append-only tracking update.
type Entry struct {
	ID        types.ID          `json:"id,omitempty"`
	OrderID   string            `json:"order_id"`
	Status    enums.OrderStatus `json:"status"`
	Notes     string            `json:"notes,omitempty"`
	UpdatedBy types.ID          `json:"updated_by,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// UpdateRequest is the POST /tracking body.
type UpdateRequest struct {
	OrderID string            `json:"order_id" validate:"required"`
	Status  enums.OrderStatus `json:"status" validate:"required"`
	Notes   string            `json:"notes,omitempty" validate:"max=500"`
}

type ListFilters struct {
	pagination.Params
	Status string
}

type EntryList struct {
	Tracking   []Entry         `json:"tracking"`
	Pagination pagination.Page `json:"pagination"`
}

// Timeline is an order's tracking history arranged for display.
type Timeline struct {
	Entries []Entry
	// Current is the status of the most recent entry, pending when there is none.
	Current enums.OrderStatus
	// FurthestStep is the highest workflow step reached, -1 when only side branches exist.
	FurthestStep int
	// Regressions lists entries whose status is not a legal successor of the entry before it.
	Regressions []Regression
}

// Regression pairs an entry with the status it illegally followed.
type Regression struct {
	Entry Entry
	From  enums.OrderStatus
}

// Step describes one position on the fulfilment path.
type Step struct {
	Status  enums.OrderStatus
	Label   string
	Reached bool
	Current bool
}
