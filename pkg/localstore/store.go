// Package localstore keeps small pieces of client state (session, cart, wishlist)
// durable between runs, the way the browser build kept them in localStorage.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Fixed keys shared by every backend.
const (
	KeyToken    = "token"
	KeyUser     = "user"
	KeyCart     = "raamul_cart"
	KeyWishlist = "raamul_wishlist"
)

// ErrNotFound is returned by Get when nothing is stored under the key.
var ErrNotFound = errors.New("local state entry not found")

// Store is a durable string-keyed byte store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// LoadJSON decodes the entry under key into dest. It reports false when the key is absent.
func LoadJSON(ctx context.Context, store Store, key string, dest any) (bool, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes value and stores it under key.
func SaveJSON(ctx context.Context, store Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Set(ctx, key, raw)
}
