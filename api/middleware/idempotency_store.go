package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgredis "github.com/angelmondragon/raamul-storefront/pkg/redis"
)

// MemoryIdempotencyStore keeps idempotency records in process. It backs the sandbox
// when no Redis is configured.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	value   string
	expires time.Time
}

var _ pkgredis.IdempotencyStore = (*MemoryIdempotencyStore)(nil)

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{records: map[string]memoryRecord{}, now: time.Now}
}

func (m *MemoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok || m.expired(rec) {
		delete(m.records, key)
		return "", pkgredis.ErrNil
	}
	return rec.value, nil
}

func (m *MemoryIdempotencyStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key]; ok && !m.expired(rec) {
		return false, nil
	}
	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}
	m.records[key] = memoryRecord{value: fmt.Sprint(value), expires: expires}
	return true, nil
}

func (m *MemoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("idempotency:%s:%s", scope, id)
}

func (m *MemoryIdempotencyStore) expired(rec memoryRecord) bool {
	return !rec.expires.IsZero() && !m.now().Before(rec.expires)
}
