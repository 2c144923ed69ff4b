package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory remittance type persistence adapter.
type Repository struct {
	mu     sync.RWMutex
	byID   map[string]*domain.RemittanceType
	latest map[string]string
}

func NewRepository() *Repository {
	return &Repository{
		byID:   map[string]*domain.RemittanceType{},
		latest: map[string]string{},
	}
}

func (r *Repository) Create(_ context.Context, rt *domain.RemittanceType) (*domain.RemittanceType, error) {
	if rt == nil {
		return nil, errors.New("remittance type is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.latest[rt.Code]; exists {
		return nil, ports.ErrDuplicate
	}
	clone := *rt
	r.byID[clone.ID] = &clone
	r.latest[clone.Code] = clone.ID
	out := clone
	return &out, nil
}

func (r *Repository) Supersede(_ context.Context, previous, next *domain.RemittanceType) (*domain.RemittanceType, error) {
	if previous == nil || next == nil {
		return nil, errors.New("remittance type is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest[previous.Code] != previous.ID {
		return nil, ports.ErrNotLatest
	}
	stored, ok := r.byID[previous.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	stored.Active = false
	clone := *next
	r.byID[clone.ID] = &clone
	r.latest[clone.Code] = clone.ID
	out := clone
	return &out, nil
}

func (r *Repository) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return ports.ErrNotFound
	}
	stored.Active = false
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.RemittanceType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (r *Repository) List(_ context.Context, activeOnly bool) ([]*domain.RemittanceType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.RemittanceType, 0, len(r.byID))
	for _, stored := range r.byID {
		if activeOnly && !stored.Active {
			continue
		}
		clone := *stored
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Code != list[j].Code {
			return list[i].Code < list[j].Code
		}
		return list[i].Version < list[j].Version
	})
	return list, nil
}
