package localstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/raamul-storefront/pkg/config"
	"github.com/angelmondragon/raamul-storefront/pkg/db"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/migrate"
	"github.com/angelmondragon/raamul-storefront/pkg/redis"
	"go.uber.org/multierr"
)

// Open builds the store selected by cfg.Storage.Driver. SQL backends are migrated first.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, cfg.Storage.Namespace, logg)
		if err != nil {
			return nil, fmt.Errorf("open redis state store: %w", err)
		}
		return NewRedisStore(client), nil
	case config.StorageDriverSQLite, config.StorageDriverPostgres:
		client, err := db.New(ctx, cfg.Storage, logg)
		if err != nil {
			return nil, fmt.Errorf("open sql state store: %w", err)
		}
		if err := migrateClient(ctx, client); err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		return NewSQLStore(client), nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}

func migrateClient(ctx context.Context, client *db.Client) error {
	if err := migrate.Up(ctx, client.SQLDB(), client.Dialect()); err != nil {
		return fmt.Errorf("migrate local state: %w", err)
	}
	return nil
}

// Memory is an in-process Store, used by tests and one-shot commands.
type Memory struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{entries: map[string][]byte{}}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), val...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *Memory) Close() error { return nil }
