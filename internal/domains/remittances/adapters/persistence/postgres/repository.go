package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders and their audit trail in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Schema is owned by platform/migrations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create takes the next order number and inserts the order with its genesis entry.
func (r *Repository) Create(ctx context.Context, order *domain.Order, genesis domain.AuditEntry) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	record := toRecord(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(fmt.Sprintf("SELECT nextval('%s')", OrderNumberSequence)).Scan(&record.Number).Error; err != nil {
			return fmt.Errorf("next order number: %w", err)
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		entry := toEntryRecord(genesis)
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

// ApplyTransition updates the row only while it still carries expectedStatus and
// expectedVersion, and appends entry in the same transaction.
func (r *Repository) ApplyTransition(ctx context.Context, order *domain.Order, expectedStatus domain.Status, expectedVersion int64, entry domain.AuditEntry) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	record := toRecord(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&OrderRecord{}).
			Where("id = ? AND status = ? AND version = ?", order.ID, string(expectedStatus), expectedVersion).
			Updates(record.mutableColumns())
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&OrderRecord{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ports.ErrNotFound
			}
			return ports.ErrConcurrentUpdate
		}
		entryRecord := toEntryRecord(entry)
		if err := tx.Create(&entryRecord).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ports.ErrConcurrentUpdate
			}
			return fmt.Errorf("append audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, order.ID)
}

// GetByID fetches an order by identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record OrderRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// ListByOwner returns a sender's orders, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return r.find(r.db.WithContext(ctx).Where("sender_id = ?", ownerID))
}

// ListByStatus returns orders in any of statuses, newest first.
func (r *Repository) ListByStatus(ctx context.Context, statuses []domain.Status) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	values := make(pq.StringArray, 0, len(statuses))
	for _, st := range statuses {
		values = append(values, string(st))
	}
	return r.find(r.db.WithContext(ctx).Where("status = ANY(?)", values))
}

func (r *Repository) find(query *gorm.DB) ([]*domain.Order, error) {
	var records []OrderRecord
	if err := query.Order("number DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

// ListAuditTrail returns an order's entries in sequence order.
func (r *Repository) ListAuditTrail(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []AuditEntryRecord
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("sequence ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ports.ErrNotFound
	}
	entries := make([]domain.AuditEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, rec.toDomain())
	}
	return entries, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}
