package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory order persistence adapter. A single mutex makes the
// compare-and-swap plus audit append atomic.
type Repository struct {
	mu      sync.RWMutex
	orders  map[string]*domain.Order
	trails  map[string][]domain.AuditEntry
	nextNum int64

	// failAppend, when set, makes the next audit append fail.
	failAppend error
}

func NewRepository() *Repository {
	return &Repository{
		orders: map[string]*domain.Order{},
		trails: map[string][]domain.AuditEntry{},
	}
}

// FailNextAppend makes the next audit append fail with err, leaving the order untouched.
func (r *Repository) FailNextAppend(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAppend = err
}

func (r *Repository) Create(_ context.Context, order *domain.Order, genesis domain.AuditEntry) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.ID]; exists {
		return nil, errors.New("order already exists")
	}
	if err := r.takeAppendFailure(); err != nil {
		return nil, err
	}
	clone := order.Clone()
	r.nextNum++
	clone.Number = r.nextNum
	r.orders[clone.ID] = clone
	r.trails[clone.ID] = []domain.AuditEntry{genesis}
	return clone.Clone(), nil
}

func (r *Repository) ApplyTransition(_ context.Context, order *domain.Order, expectedStatus domain.Status, expectedVersion int64, entry domain.AuditEntry) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if stored.Status != expectedStatus || stored.Version != expectedVersion {
		return nil, ports.ErrConcurrentUpdate
	}
	if err := r.takeAppendFailure(); err != nil {
		return nil, err
	}
	clone := order.Clone()
	clone.Number = stored.Number
	r.orders[clone.ID] = clone
	r.trails[clone.ID] = append(r.trails[clone.ID], entry)
	return clone.Clone(), nil
}

func (r *Repository) takeAppendFailure() error {
	err := r.failAppend
	r.failAppend = nil
	return err
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *Repository) ListByOwner(_ context.Context, ownerID string) ([]*domain.Order, error) {
	return r.list(func(o *domain.Order) bool { return o.SenderID == ownerID }), nil
}

func (r *Repository) ListByStatus(_ context.Context, statuses []domain.Status) ([]*domain.Order, error) {
	wanted := make(map[domain.Status]struct{}, len(statuses))
	for _, st := range statuses {
		wanted[st] = struct{}{}
	}
	return r.list(func(o *domain.Order) bool {
		_, ok := wanted[o.Status]
		return ok
	}), nil
}

func (r *Repository) list(match func(*domain.Order) bool) []*domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Order, 0)
	for _, order := range r.orders {
		if match(order) {
			out = append(out, order.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out
}

func (r *Repository) ListAuditTrail(_ context.Context, orderID string) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	trail, ok := r.trails[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return append([]domain.AuditEntry(nil), trail...), nil
}

// OverwriteStatus changes the stored status without an audit entry, simulating a
// corrupted row for integrity checks.
func (r *Repository) OverwriteStatus(id string, status domain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order, ok := r.orders[id]; ok {
		order.Status = status
	}
}
