// Package wishlist keeps saved products in the local store.
package wishlist

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/raamul-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/localstore"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

// Entry is a saved product stamped with when it was added.
type Entry struct {
	cart.Item
	AddedAt time.Time `json:"addedAt"`
}

// Wishlist is the single owner of the persisted entries.
type Wishlist struct {
	mu      sync.Mutex
	entries []Entry
	store   localstore.Store
	now     func() time.Time
}

// Load restores the saved wishlist. An unreadable saved list starts empty.
func Load(ctx context.Context, store localstore.Store, logg *logger.Logger) (*Wishlist, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "local store is required")
	}
	w := &Wishlist{store: store, now: time.Now, entries: []Entry{}}

	var saved []Entry
	found, err := localstore.LoadJSON(ctx, store, localstore.KeyWishlist, &saved)
	if err != nil {
		if logg != nil {
			logg.WarnErr(ctx, "ignoring unreadable saved wishlist", err)
		}
		return w, nil
	}
	if found && saved != nil {
		w.entries = saved
	}
	return w, nil
}

// Add saves item unless it is already present.
func (w *Wishlist) Add(ctx context.Context, item cart.Item) error {
	if item.ProductID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.indexOf(item.ProductID) >= 0 {
		return nil
	}
	w.entries = append(w.entries, Entry{Item: item, AddedAt: w.now().UTC()})
	return w.persist(ctx)
}

func (w *Wishlist) Remove(ctx context.Context, productID types.ID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexOf(productID)
	if i < 0 {
		return nil
	}
	w.entries = append(w.entries[:i], w.entries[i+1:]...)
	return w.persist(ctx)
}

// Toggle adds or removes item and returns whether it is now saved.
func (w *Wishlist) Toggle(ctx context.Context, item cart.Item) (bool, error) {
	if w.Contains(item.ProductID) {
		return false, w.Remove(ctx, item.ProductID)
	}
	return true, w.Add(ctx, item)
}

func (w *Wishlist) Contains(productID types.ID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.indexOf(productID) >= 0
}

func (w *Wishlist) Clear(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = []Entry{}
	return w.persist(ctx)
}

func (w *Wishlist) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Items returns a copy of the saved entries in insertion order.
func (w *Wishlist) Items() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Entry(nil), w.entries...)
}

func (w *Wishlist) indexOf(productID types.ID) int {
	for i, entry := range w.entries {
		if entry.ProductID == productID {
			return i
		}
	}
	return -1
}

func (w *Wishlist) persist(ctx context.Context) error {
	if err := localstore.SaveJSON(ctx, w.store, localstore.KeyWishlist, w.entries); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save wishlist")
	}
	return nil
}
