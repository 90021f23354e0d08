package wishlist

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/raamul-storefront/internal/cart"
	"github.com/angelmondragon/raamul-storefront/pkg/localstore"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleAddsStampsAndRemoves(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()
	w, err := Load(ctx, store, nil)
	require.NoError(t, err)
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	w.now = func() time.Time { return stamp }

	item := cart.Item{ProductID: "A", Name: "Calcite", Price: types.MoneyFromInt(1000)}
	saved, err := w.Toggle(ctx, item)
	require.NoError(t, err)
	assert.True(t, saved)
	require.NoError(t, w.Add(ctx, item))
	assert.Equal(t, 1, w.Count())
	assert.Equal(t, stamp, w.Items()[0].AddedAt)

	reloaded, err := Load(ctx, store, nil)
	require.NoError(t, err)
	assert.True(t, reloaded.Contains("A"))

	saved, err = w.Toggle(ctx, item)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, 0, w.Count())
}

func TestLoadIgnoresCorruptList(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()
	require.NoError(t, store.Set(ctx, localstore.KeyWishlist, []byte("nope")))
	w, err := Load(ctx, store, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Count())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	w, err := Load(ctx, localstore.NewMemory(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Add(ctx, cart.Item{ProductID: "A"}))
	require.NoError(t, w.Add(ctx, cart.Item{ProductID: "B"}))
	require.NoError(t, w.Clear(ctx))
	assert.Empty(t, w.Items())
	require.Error(t, w.Add(ctx, cart.Item{}))
}
