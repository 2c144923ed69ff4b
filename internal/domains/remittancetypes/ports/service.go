package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
)

// CreateTypeInput carries the fields of a brand new remittance type.
type CreateTypeInput struct {
	Code    string
	Terms   domain.Terms
	ActorID string
}

// ReviseTypeInput replaces the terms of an existing type by publishing a new version.
type ReviseTypeInput struct {
	ID      string
	Terms   domain.Terms
	ActorID string
}

// Quote previews the settlement of an amount under a type version.
type Quote struct {
	TypeID           string
	AmountSent       decimal.Decimal
	Commission       decimal.Decimal
	AmountToDeliver  decimal.Decimal
	SourceCurrency   string
	DeliveryCurrency string
}

// Service exposes remittance type use cases to adapters.
type Service interface {
	CreateType(ctx context.Context, input CreateTypeInput) (*domain.RemittanceType, error)
	ReviseType(ctx context.Context, input ReviseTypeInput) (*domain.RemittanceType, error)
	DeactivateType(ctx context.Context, id string) error
	GetType(ctx context.Context, id string) (*domain.RemittanceType, error)
	ListTypes(ctx context.Context, activeOnly bool) ([]*domain.RemittanceType, error)
	Quote(ctx context.Context, id string, amount decimal.Decimal) (*Quote, error)
}
