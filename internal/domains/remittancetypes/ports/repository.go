package ports

import (
	"context"
	"errors"

	"github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
)

var (
	ErrNotFound  = errors.New("remittance type not found")
	ErrDuplicate = errors.New("remittance type code already exists")
	ErrNotLatest = errors.New("remittance type version was superseded")
)

// Repository persists remittance type versions. Versions are never updated in place except
// for the active flag.
type Repository interface {
	Create(ctx context.Context, rt *domain.RemittanceType) (*domain.RemittanceType, error)
	// Supersede deactivates previous and inserts next atomically. It fails with ErrNotLatest
	// when previous is no longer the newest version of its code.
	Supersede(ctx context.Context, previous, next *domain.RemittanceType) (*domain.RemittanceType, error)
	Deactivate(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.RemittanceType, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.RemittanceType, error)
}
