// Package cart keeps the shopper's line items and persists them to the local store.
package cart

import (
	"context"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/localstore"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
	"github.com/shopspring/decimal"
)

// Item is the product data a line keeps.
type Item struct {
	ProductID types.ID    `json:"id"`
	SKU       string      `json:"sku,omitempty"`
	Name      string      `json:"name"`
	Price     types.Money `json:"price"`
	Unit      string      `json:"unit,omitempty"`
	Image     string      `json:"image,omitempty"`
}

// Line is one product in the cart. Quantity is at least 1 while the line exists.
type Line struct {
	Item
	Quantity int `json:"quantity"`
}

// LineTotal is price times quantity.
func (l Line) LineTotal() types.Money {
	return types.NewMoney(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
}

// Cart is the single owner of the persisted line list.
type Cart struct {
	mu    sync.Mutex
	lines []Line
	store localstore.Store
	logg  *logger.Logger
}

// Load restores the saved cart. An unreadable saved cart is discarded and removed.
func Load(ctx context.Context, store localstore.Store, logg *logger.Logger) (*Cart, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "local store is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	c := &Cart{store: store, logg: logg, lines: []Line{}}

	var saved []Line
	found, err := localstore.LoadJSON(ctx, store, localstore.KeyCart, &saved)
	if err != nil {
		logg.WarnErr(ctx, "discarding unreadable saved cart", err)
		if delErr := store.Delete(ctx, localstore.KeyCart); delErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, delErr, "remove unreadable cart")
		}
		return c, nil
	}
	if found {
		c.lines = sanitize(saved)
	}
	return c, nil
}

// sanitize drops lines that would break the quantity invariant and merges duplicate ids.
func sanitize(saved []Line) []Line {
	out := make([]Line, 0, len(saved))
	index := map[types.ID]int{}
	for _, line := range saved {
		if line.ProductID == "" || line.Quantity < 1 {
			continue
		}
		if i, ok := index[line.ProductID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(out)
		out = append(out, line)
	}
	return out
}

// Add merges quantity into the line for item's product, or appends a new line.
func (c *Cart) Add(ctx context.Context, item Item, quantity int) error {
	if strings.TrimSpace(item.ProductID.String()) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(item.ProductID); i >= 0 {
		c.lines[i].Quantity += quantity
	} else {
		c.lines = append(c.lines, Line{Item: item, Quantity: quantity})
	}
	return c.persist(ctx)
}

// Remove drops the line for productID. Removing an absent product is a no-op.
func (c *Cart) Remove(ctx context.Context, productID types.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(ctx, productID)
}

// UpdateQuantity replaces the line quantity. A quantity below 1 removes the line.
func (c *Cart) UpdateQuantity(ctx context.Context, productID types.ID, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if quantity < 1 {
		return c.removeLocked(ctx, productID)
	}
	i := c.indexOf(productID)
	if i < 0 {
		return nil
	}
	c.lines[i].Quantity = quantity
	return c.persist(ctx)
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = []Line{}
	return c.persist(ctx)
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Line(nil), c.lines...)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Count is the total number of units across lines.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// Subtotal sums price times quantity.
func (c *Cart) Subtotal() types.Money {
	c.mu.Lock()
	defer c.mu.Unlock()
	return subtotal(c.lines)
}

// Shipping is always zero under the current pricing policy.
func (c *Cart) Shipping() types.Money {
	return types.MoneyFromInt(0)
}

// Tax is always zero under the current pricing policy.
func (c *Cart) Tax() types.Money {
	return types.MoneyFromInt(0)
}

// Total equals Subtotal while tax and shipping are zero.
func (c *Cart) Total() types.Money {
	sub := c.Subtotal()
	return types.NewMoney(sub.Add(c.Tax().Decimal).Add(c.Shipping().Decimal))
}

func (c *Cart) Contains(productID types.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexOf(productID) >= 0
}

// Quantity returns the line quantity for productID, or 0 when absent.
func (c *Cart) Quantity(productID types.ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(productID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

func (c *Cart) removeLocked(ctx context.Context, productID types.ID) error {
	i := c.indexOf(productID)
	if i < 0 {
		return nil
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return c.persist(ctx)
}

func (c *Cart) indexOf(productID types.ID) int {
	for i, line := range c.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) persist(ctx context.Context) error {
	if err := localstore.SaveJSON(ctx, c.store, localstore.KeyCart, c.lines); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart")
	}
	return nil
}

func subtotal(lines []Line) types.Money {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal().Decimal)
	}
	return types.NewMoney(total)
}
