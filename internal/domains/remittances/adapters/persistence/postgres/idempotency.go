package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyRecord maps an order submission key to a row. OrderID stays NULL while the
// reserving request is creating the order.
type IdempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:64"`
	OrderID     *string   `gorm:"column:order_id;type:uuid"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (IdempotencyRecord) TableName() string { return "order_idempotency_keys" }

// IdempotencyStore persists order submission keys in PostgreSQL. The primary key on the
// key column makes Reserve atomic across API replicas.
type IdempotencyStore struct {
	db *gorm.DB
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Get loads a record by key, returning nil when absent.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	var record IdempotencyRecord
	if err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record.toPort(), nil
}

func (s *IdempotencyStore) Reserve(ctx context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	row := IdempotencyRecord{
		Key:         record.Key,
		RequestHash: record.RequestHash,
		CreatedAt:   record.CreatedAt,
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return row.toPort(), nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}
	existing, getErr := s.Get(ctx, record.Key)
	if getErr != nil {
		return nil, getErr
	}
	return existing, ports.ErrIdempotencyKeyTaken
}

func (s *IdempotencyStore) Complete(ctx context.Context, key, orderID string) error {
	res := s.db.WithContext(ctx).Model(&IdempotencyRecord{}).
		Where("key = ? AND order_id IS NULL", key).
		Update("order_id", orderID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrIdempotencyConflict
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).
		Where("key = ? AND order_id IS NULL", key).
		Delete(&IdempotencyRecord{}).Error
}

func (r *IdempotencyRecord) toPort() *ports.IdempotencyRecord {
	record := &ports.IdempotencyRecord{
		Key:         r.Key,
		RequestHash: r.RequestHash,
		CreatedAt:   r.CreatedAt,
	}
	if r.OrderID != nil {
		record.OrderID = *r.OrderID
	}
	return record
}
