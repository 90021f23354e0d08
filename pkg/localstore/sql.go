package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/raamul-storefront/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type stateRecord struct {
	Key       string    `gorm:"column:state_key;primaryKey"`
	Value     string    `gorm:"column:state_value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (stateRecord) TableName() string { return "local_state" }

// SQLStore keeps entries in the local_state table.
type SQLStore struct {
	client *db.Client
	now    func() time.Time
}

// NewSQLStore builds a store on a migrated database.
func NewSQLStore(client *db.Client) *SQLStore {
	return &SQLStore{client: client, now: time.Now}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec stateRecord
	err := s.client.DB().WithContext(ctx).Where("state_key = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return []byte(rec.Value), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	rec := stateRecord{Key: key, Value: string(value), UpdatedAt: s.now().UTC()}
	err := s.client.DB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"state_value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.DB().WithContext(ctx).Where("state_key IN ?", keys).Delete(&stateRecord{}).Error; err != nil {
		return fmt.Errorf("delete %v: %w", keys, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.client.Close()
}
