package ports

import (
	"context"
	"errors"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrConcurrentUpdate is returned by ApplyTransition when the persisted status or version no
	// longer matches what the caller observed.
	ErrConcurrentUpdate = errors.New("order was modified concurrently")
)

// Repository is the single source of truth for orders and their audit trail.
// Audit entries are only ever appended together with the order write they describe.
type Repository interface {
	// Create assigns the order number and stores the order with its genesis entry atomically.
	Create(ctx context.Context, order *domain.Order, genesis domain.AuditEntry) (*domain.Order, error)
	// ApplyTransition writes order only if the stored row still has expectedStatus and
	// expectedVersion, appending entry in the same transaction.
	ApplyTransition(ctx context.Context, order *domain.Order, expectedStatus domain.Status, expectedVersion int64, entry domain.AuditEntry) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Order, error)
	ListByStatus(ctx context.Context, statuses []domain.Status) ([]*domain.Order, error)
	// ListAuditTrail returns entries ordered by sequence.
	ListAuditTrail(ctx context.Context, orderID string) ([]domain.AuditEntry, error)
}
