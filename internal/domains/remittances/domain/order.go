package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes a money transfer from a purchase paid through the same lifecycle.
type Kind string

const (
	KindRemittance Kind = "remittance"
	KindPurchase   Kind = "purchase"
)

func (k Kind) Valid() bool { return k == KindRemittance || k == KindPurchase }

func (k Kind) numberPrefix() string {
	if k == KindPurchase {
		return "PUR"
	}
	return "REM"
}

// Snapshot captures the remittance type values an order was priced with.
// Later revisions of the type never change it.
type Snapshot struct {
	RemittanceTypeID  string
	SourceCurrency    string
	DeliveryCurrency  string
	ExchangeRate      decimal.Decimal
	CommissionPercent decimal.Decimal
	CommissionFixed   decimal.Decimal
	WarningDays       int
	MaxDeliveryDays   int
}

// AmountRange is the inclusive range accepted by the referenced type at creation time.
type AmountRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Contains reports whether amount lies within [Min, Max].
func (r AmountRange) Contains(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(r.Min) && amount.LessThanOrEqual(r.Max)
}

// Recipient holds the descriptive fields of the person receiving the money.
type Recipient struct {
	FullName   string
	Phone      string
	IDNumber   string
	Address    string
	CardNumber string
	Notes      string
}

// ProofReference is an opaque storage handle plus an optional free-text reference.
type ProofReference struct {
	URL       string
	Reference string
}

// DeliveryConfirmation identifies who received the money.
type DeliveryConfirmation struct {
	RecipientName     string
	RecipientIDNumber string
}

// Order is the aggregate whose status is governed by the lifecycle state machine.
// Fields are mutated only through Apply.
type Order struct {
	ID         string
	Number     int64
	Kind       Kind
	SenderID   string
	Snapshot   Snapshot
	AmountSent decimal.Decimal
	Settlement Settlement
	Recipient  Recipient
	Status     Status
	Version    int64

	PaymentProof  *ProofReference
	DeliveryProof *ProofReference
	Confirmation  *DeliveryConfirmation

	CreatedAt           time.Time
	UpdatedAt           time.Time
	ProofUploadedAt     *time.Time
	ValidatedAt         *time.Time
	ValidatedBy         string
	RejectedAt          *time.Time
	RejectedBy          string
	RejectionReason     string
	ProcessingStartedAt *time.Time
	ProcessingStartedBy string
	DeliveredAt         *time.Time
	DeliveredBy         string
	CompletedAt         *time.Time
	CancelledAt         *time.Time
	CancelledBy         string
	CancellationReason  string
}

// Draft carries the validated inputs of a new order.
type Draft struct {
	ID         string
	Kind       Kind
	SenderID   string
	Snapshot   Snapshot
	Range      AmountRange
	AmountSent decimal.Decimal
	Recipient  Recipient
}

// NewOrder prices a draft and returns the order in status created.
func NewOrder(d Draft, now time.Time) (*Order, error) {
	if d.Kind == "" {
		d.Kind = KindRemittance
	}
	if !d.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	if strings.TrimSpace(d.SenderID) == "" {
		return nil, ErrInvalidActor
	}
	if !d.AmountSent.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !d.Range.Contains(d.AmountSent) {
		return nil, &AmountOutOfRangeError{Amount: d.AmountSent, Min: d.Range.Min, Max: d.Range.Max}
	}
	if strings.TrimSpace(d.Recipient.FullName) == "" {
		return nil, ErrRecipientRequired
	}
	snap := d.Snapshot
	settlement, err := ComputeSettlement(d.AmountSent, snap.ExchangeRate, snap.CommissionPercent, snap.CommissionFixed)
	if err != nil {
		return nil, err
	}
	return &Order{
		ID:         d.ID,
		Kind:       d.Kind,
		SenderID:   d.SenderID,
		Snapshot:   snap,
		AmountSent: d.AmountSent,
		Settlement: settlement,
		Recipient:  d.Recipient,
		Status:     StatusCreated,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// DisplayNumber renders the human-readable sequence number, e.g. REM-000042.
func (o *Order) DisplayNumber() string {
	return fmt.Sprintf("%s-%06d", o.Kind.numberPrefix(), o.Number)
}

// TransitionRequest is the caller-supplied payload of a guarded transition.
type TransitionRequest struct {
	Action        Action
	Actor         Actor
	Reason        string
	Proof         *ProofReference
	DeliveryProof *ProofReference
	Confirmation  *DeliveryConfirmation
}

// Transition records a status change applied to an order.
type Transition struct {
	Action     Action
	From       Status
	To         Status
	Actor      Actor
	Reason     string
	OccurredAt time.Time
	Version    int64
}

// CheckState verifies the caller observed the persisted status and that action leads somewhere from it.
func (o *Order) CheckState(expected Status, action Action) error {
	if o.Status != expected {
		return &TransitionRejectedError{Reason: ReasonStaleState, OrderID: o.ID, Action: action, Expected: expected, Current: o.Status}
	}
	if _, ok := TargetFor(action, o.Status); !ok {
		return &TransitionRejectedError{Reason: ReasonInvalidTarget, OrderID: o.ID, Action: action, Expected: expected, Current: o.Status}
	}
	return nil
}

// Apply validates the payload and moves the order to the action's target status.
// The applied timestamp is clamped so it never precedes the latest timestamp already stamped.
func (o *Order) Apply(req TransitionRequest, now time.Time) (Transition, error) {
	to, ok := TargetFor(req.Action, o.Status)
	if !ok {
		return Transition{}, &TransitionRejectedError{Reason: ReasonInvalidTarget, OrderID: o.ID, Action: req.Action, Expected: o.Status, Current: o.Status}
	}
	if field := missingField(req); field != "" {
		return Transition{}, &TransitionRejectedError{Reason: ReasonMissingRequiredField, OrderID: o.ID, Action: req.Action, Expected: o.Status, Current: o.Status, Field: field}
	}
	if now.Before(o.UpdatedAt) {
		now = o.UpdatedAt
	}
	at := now
	reason := strings.TrimSpace(req.Reason)

	switch req.Action {
	case ActionUploadProof:
		proof := *req.Proof
		o.PaymentProof = &proof
		o.ProofUploadedAt = &at
	case ActionValidatePayment:
		o.ValidatedAt = &at
		o.ValidatedBy = req.Actor.ID
	case ActionRejectPayment:
		o.RejectedAt = &at
		o.RejectedBy = req.Actor.ID
		o.RejectionReason = reason
	case ActionStartProcessing:
		o.ProcessingStartedAt = &at
		o.ProcessingStartedBy = req.Actor.ID
	case ActionConfirmDelivery:
		proof := *req.DeliveryProof
		confirmation := *req.Confirmation
		o.DeliveryProof = &proof
		o.Confirmation = &confirmation
		o.DeliveredAt = &at
		o.DeliveredBy = req.Actor.ID
	case ActionComplete:
		o.CompletedAt = &at
	case ActionCancel:
		o.CancelledAt = &at
		o.CancelledBy = req.Actor.ID
		o.CancellationReason = reason
	}

	from := o.Status
	o.Status = to
	o.UpdatedAt = at
	o.Version++
	return Transition{
		Action:     req.Action,
		From:       from,
		To:         to,
		Actor:      req.Actor,
		Reason:     reason,
		OccurredAt: at,
		Version:    o.Version,
	}, nil
}

func missingField(req TransitionRequest) string {
	switch req.Action {
	case ActionUploadProof:
		if req.Proof == nil || strings.TrimSpace(req.Proof.URL) == "" {
			return "proof reference"
		}
	case ActionRejectPayment, ActionCancel:
		if strings.TrimSpace(req.Reason) == "" {
			return "reason"
		}
	case ActionConfirmDelivery:
		if req.DeliveryProof == nil || strings.TrimSpace(req.DeliveryProof.URL) == "" {
			return "delivery proof reference"
		}
		if req.Confirmation == nil || strings.TrimSpace(req.Confirmation.RecipientName) == "" {
			return "recipient name"
		}
		if strings.TrimSpace(req.Confirmation.RecipientIDNumber) == "" {
			return "recipient id number"
		}
	}
	return ""
}

// Clone returns a deep copy safe to hand across goroutines.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.PaymentProof = cloneProof(o.PaymentProof)
	c.DeliveryProof = cloneProof(o.DeliveryProof)
	if o.Confirmation != nil {
		confirmation := *o.Confirmation
		c.Confirmation = &confirmation
	}
	c.ProofUploadedAt = cloneTime(o.ProofUploadedAt)
	c.ValidatedAt = cloneTime(o.ValidatedAt)
	c.RejectedAt = cloneTime(o.RejectedAt)
	c.ProcessingStartedAt = cloneTime(o.ProcessingStartedAt)
	c.DeliveredAt = cloneTime(o.DeliveredAt)
	c.CompletedAt = cloneTime(o.CompletedAt)
	c.CancelledAt = cloneTime(o.CancelledAt)
	return &c
}

func cloneProof(p *ProofReference) *ProofReference {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
