package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	remittancedomain "github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/ports"
)

// Service orchestrates remittance type configuration use cases.
type Service struct {
	repo  ports.Repository
	now   func() time.Time
	newID func() string
}

// Option customises the service.
type Option func(*Service)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides version id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func NewService(repo ports.Repository, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateType publishes version 1 of a new remittance type.
func (s *Service) CreateType(ctx context.Context, input ports.CreateTypeInput) (*domain.RemittanceType, error) {
	rt, err := domain.NewRemittanceType(s.newID(), input.Code, input.Terms, input.ActorID, s.now().UTC())
	if err != nil {
		return nil, mapError(err)
	}
	return s.repo.Create(ctx, rt)
}

// ReviseType publishes a new version and retires the one identified by input.ID.
// Orders already created keep the economics of the version they captured.
func (s *Service) ReviseType(ctx context.Context, input ports.ReviseTypeInput) (*domain.RemittanceType, error) {
	current, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	next, err := current.Revise(s.newID(), input.Terms, input.ActorID, s.now().UTC())
	if err != nil {
		return nil, mapError(err)
	}
	return s.repo.Supersede(ctx, current, next)
}

func (s *Service) DeactivateType(ctx context.Context, id string) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := current.Deactivate(); err != nil {
		return mapError(err)
	}
	return s.repo.Deactivate(ctx, id)
}

func (s *Service) GetType(ctx context.Context, id string) (*domain.RemittanceType, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListTypes(ctx context.Context, activeOnly bool) ([]*domain.RemittanceType, error) {
	return s.repo.List(ctx, activeOnly)
}

// Quote previews the settlement for amount without creating an order.
func (s *Service) Quote(ctx context.Context, id string, amount decimal.Decimal) (*ports.Quote, error) {
	rt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rt.Active {
		return nil, &remittancedomain.ConfigInactiveError{ConfigID: rt.ID}
	}
	terms := rt.Terms
	if !terms.AcceptsAmount(amount) {
		return nil, &remittancedomain.AmountOutOfRangeError{Amount: amount, Min: terms.MinAmount, Max: terms.MaxAmount}
	}
	settlement, err := remittancedomain.ComputeSettlement(amount, terms.ExchangeRate, terms.CommissionPercent, terms.CommissionFixed)
	if err != nil {
		return nil, err
	}
	return &ports.Quote{
		TypeID:           rt.ID,
		AmountSent:       amount,
		Commission:       settlement.Commission,
		AmountToDeliver:  settlement.AmountToDeliver,
		SourceCurrency:   terms.SourceCurrency,
		DeliveryCurrency: terms.DeliveryCurrency,
	}, nil
}

var _ ports.Service = (*Service)(nil)
