package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/angelmondragon/raamul-storefront/pkg/config"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartLine struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, KeyCart)
	require.ErrorIs(t, err, ErrNotFound)

	var lines []cartLine
	found, err := LoadJSON(ctx, store, KeyCart, &lines)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SaveJSON(ctx, store, KeyCart, []cartLine{{ID: "p1", Quantity: 2}}))
	require.NoError(t, SaveJSON(ctx, store, KeyCart, []cartLine{{ID: "p1", Quantity: 3}}))

	found, err = LoadJSON(ctx, store, KeyCart, &lines)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []cartLine{{ID: "p1", Quantity: 3}}, lines)

	require.NoError(t, store.Set(ctx, KeyToken, []byte("abc")))
	raw, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(raw))

	require.NoError(t, store.Delete(ctx, KeyToken, KeyCart))
	_, err = store.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLStoreViaFactory(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Driver: config.StorageDriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "state.db"),
	}}
	store, err := Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer store.Close()

	require.IsType(t, &SQLStore{}, store)
	exerciseStore(t, store)
}

func TestSQLStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{Storage: config.StorageConfig{
		Driver: config.StorageDriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "state.db"),
	}}

	first, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, KeyWishlist, []byte(`[]`)))
	require.NoError(t, first.Close())

	second, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer second.Close()
	raw, err := second.Get(ctx, KeyWishlist)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewFromRaw(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "test")
	store := NewRedisStore(client)
	defer store.Close()

	exerciseStore(t, store)

	require.NoError(t, store.Set(context.Background(), KeyUser, []byte(`{"id":"u1"}`)))
	got, err := mr.Get("test:state:user")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1"}`, got)
	assert.Equal(t, time.Duration(0), mr.TTL("test:state:user"))
}

func TestLoadJSONRejectsCorruptEntries(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, KeyCart, []byte("not-json")))

	var lines []cartLine
	found, err := LoadJSON(ctx, store, KeyCart, &lines)
	require.Error(t, err)
	assert.False(t, found)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Storage: config.StorageConfig{Driver: "mongo"}}, nil)
	require.Error(t, err)
}
