package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists remittance type versions in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Schema is owned by platform/migrations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// RemittanceTypeRecord maps a remittance type version to a relational row.
type RemittanceTypeRecord struct {
	ID                string          `gorm:"primaryKey;column:id;type:uuid"`
	Code              string          `gorm:"column:code;size:64;uniqueIndex:idx_remittance_types_code_version"`
	Version           int             `gorm:"column:version;uniqueIndex:idx_remittance_types_code_version"`
	Name              string          `gorm:"column:name"`
	SourceCurrency    string          `gorm:"column:source_currency;size:3"`
	DeliveryCurrency  string          `gorm:"column:delivery_currency;size:3"`
	ExchangeRate      decimal.Decimal `gorm:"column:exchange_rate;type:numeric(18,6)"`
	CommissionPercent decimal.Decimal `gorm:"column:commission_percent;type:numeric(7,4)"`
	CommissionFixed   decimal.Decimal `gorm:"column:commission_fixed;type:numeric(18,2)"`
	MinAmount         decimal.Decimal `gorm:"column:min_amount;type:numeric(18,2)"`
	MaxAmount         decimal.Decimal `gorm:"column:max_amount;type:numeric(18,2)"`
	MaxDeliveryDays   int             `gorm:"column:max_delivery_days"`
	WarningDays       int             `gorm:"column:warning_days"`
	Active            bool            `gorm:"column:active;index"`
	CreatedBy         string          `gorm:"column:created_by"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
}

func (RemittanceTypeRecord) TableName() string { return "remittance_types" }

// Create inserts version 1 of a type code.
func (r *Repository) Create(ctx context.Context, rt *domain.RemittanceType) (*domain.RemittanceType, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if rt == nil {
		return nil, errors.New("remittance type is nil")
	}
	record := toRecord(rt)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ports.ErrDuplicate
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// Supersede retires previous and inserts next in one transaction.
func (r *Repository) Supersede(ctx context.Context, previous, next *domain.RemittanceType) (*domain.RemittanceType, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if previous == nil || next == nil {
		return nil, errors.New("remittance type is nil")
	}
	record := toRecord(next)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		newer := tx.Model(&RemittanceTypeRecord{}).
			Select("1").
			Where("code = ? AND version > ?", previous.Code, previous.Version)
		result := tx.Model(&RemittanceTypeRecord{}).
			Where("id = ? AND NOT EXISTS (?)", previous.ID, newer).
			Update("active", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ports.ErrNotLatest
		}
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ports.ErrNotLatest
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

// Deactivate flips the active flag of a version.
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&RemittanceTypeRecord{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// GetByID fetches one version.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.RemittanceType, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record RemittanceTypeRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// List returns versions ordered by code then version.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]*domain.RemittanceType, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).Order("code ASC, version ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var records []RemittanceTypeRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]*domain.RemittanceType, 0, len(records))
	for i := range records {
		list = append(list, records[i].toDomain())
	}
	return list, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres remittance type repository not configured")
	}
	return nil
}

func toRecord(rt *domain.RemittanceType) RemittanceTypeRecord {
	return RemittanceTypeRecord{
		ID:                rt.ID,
		Code:              rt.Code,
		Version:           rt.Version,
		Name:              rt.Terms.Name,
		SourceCurrency:    rt.Terms.SourceCurrency,
		DeliveryCurrency:  rt.Terms.DeliveryCurrency,
		ExchangeRate:      rt.Terms.ExchangeRate,
		CommissionPercent: rt.Terms.CommissionPercent,
		CommissionFixed:   rt.Terms.CommissionFixed,
		MinAmount:         rt.Terms.MinAmount,
		MaxAmount:         rt.Terms.MaxAmount,
		MaxDeliveryDays:   rt.Terms.MaxDeliveryDays,
		WarningDays:       rt.Terms.WarningDays,
		Active:            rt.Active,
		CreatedBy:         rt.CreatedBy,
		CreatedAt:         rt.CreatedAt,
	}
}

func (r RemittanceTypeRecord) toDomain() *domain.RemittanceType {
	return &domain.RemittanceType{
		ID:      r.ID,
		Code:    r.Code,
		Version: r.Version,
		Terms: domain.Terms{
			Name:              r.Name,
			SourceCurrency:    r.SourceCurrency,
			DeliveryCurrency:  r.DeliveryCurrency,
			ExchangeRate:      r.ExchangeRate,
			CommissionPercent: r.CommissionPercent,
			CommissionFixed:   r.CommissionFixed,
			MinAmount:         r.MinAmount,
			MaxAmount:         r.MaxAmount,
			MaxDeliveryDays:   r.MaxDeliveryDays,
			WarningDays:       r.WarningDays,
		},
		Active:    r.Active,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}
