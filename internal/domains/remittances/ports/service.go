package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
)

// CreateOrderInput carries a sender's new order.
type CreateOrderInput struct {
	Actor            domain.Actor
	RemittanceTypeID string
	Kind             domain.Kind
	AmountSent       decimal.Decimal
	Recipient        domain.Recipient
	// IdempotencyKey, when set, makes a retried submission return the original order.
	IdempotencyKey string
}

// TransitionInput identifies the order and the status the caller observed before acting.
type TransitionInput struct {
	OrderID        string
	ExpectedStatus domain.Status
	Actor          domain.Actor
}

type UploadProofInput struct {
	TransitionInput
	Proof domain.ProofReference
}

type RejectPaymentInput struct {
	TransitionInput
	Reason string
}

type ConfirmDeliveryInput struct {
	TransitionInput
	Proof        domain.ProofReference
	Confirmation domain.DeliveryConfirmation
}

type CancelInput struct {
	TransitionInput
	Reason string
}

// ListOrdersInput lists the actor's own orders, or, for administrators, orders in Statuses
// (every order when empty).
type ListOrdersInput struct {
	Actor    domain.Actor
	Statuses []domain.Status
}

// ProofLinks are retrievable URLs for an order's proofs; empty when no proof exists.
type ProofLinks struct {
	PaymentProofURL  string
	DeliveryProofURL string
}

// IntegrityReport summarises an audit replay over every order.
type IntegrityReport struct {
	Checked   int
	CheckedAt time.Time
}

// Service exposes the order lifecycle use cases to adapters.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	UploadProof(ctx context.Context, input UploadProofInput) (*domain.Order, error)
	ValidatePayment(ctx context.Context, input TransitionInput) (*domain.Order, error)
	RejectPayment(ctx context.Context, input RejectPaymentInput) (*domain.Order, error)
	StartProcessing(ctx context.Context, input TransitionInput) (*domain.Order, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*domain.Order, error)
	Complete(ctx context.Context, input TransitionInput) (*domain.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*domain.Order, error)
	GetOrder(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, input ListOrdersInput) ([]*domain.Order, error)
	ListAuditTrail(ctx context.Context, actor domain.Actor, orderID string) ([]domain.AuditEntry, error)
	ResolveProofLinks(ctx context.Context, actor domain.Actor, orderID string) (*ProofLinks, error)
	Subscribe(ctx context.Context, actor domain.Actor) (Subscription, error)
	EvaluateAlerts(ctx context.Context, now time.Time) ([]domain.Alert, error)
	CheckIntegrity(ctx context.Context) (*IntegrityReport, error)
}
