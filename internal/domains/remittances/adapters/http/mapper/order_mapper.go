package mapper

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

// Recipient is the HTTP representation of the person receiving the money.
type Recipient struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone,omitempty"`
	IDNumber   string `json:"idNumber,omitempty"`
	Address    string `json:"address,omitempty"`
	CardNumber string `json:"cardNumber,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Proof is an opaque proof reference plus optional free text.
type Proof struct {
	URL       string `json:"url"`
	Reference string `json:"reference,omitempty"`
}

// CreateOrder is the inbound payload of POST /v1/orders.
type CreateOrder struct {
	RemittanceTypeID string          `json:"remittanceTypeId" binding:"required"`
	Kind             string          `json:"kind,omitempty"`
	AmountSent       decimal.Decimal `json:"amountSent"`
	Recipient        Recipient       `json:"recipient"`
}

// Transition is the common body of every lifecycle action. ExpectedStatus is the status the
// caller saw before acting.
type Transition struct {
	ExpectedStatus string `json:"expectedStatus" binding:"required"`
}

type UploadProof struct {
	Transition
	Proof Proof `json:"proof"`
}

type Reasoned struct {
	Transition
	Reason string `json:"reason"`
}

type ConfirmDelivery struct {
	Transition
	Proof             Proof  `json:"proof"`
	RecipientName     string `json:"recipientName"`
	RecipientIDNumber string `json:"recipientIdNumber"`
}

// Order is the HTTP representation of an order.
type Order struct {
	ID                  string          `json:"id"`
	Number              string          `json:"number"`
	Kind                string          `json:"kind"`
	SenderID            string          `json:"senderId"`
	Status              string          `json:"status"`
	Version             int64           `json:"version"`
	RemittanceTypeID    string          `json:"remittanceTypeId"`
	SourceCurrency      string          `json:"sourceCurrency"`
	DeliveryCurrency    string          `json:"deliveryCurrency"`
	ExchangeRate        decimal.Decimal `json:"exchangeRate"`
	CommissionPercent   decimal.Decimal `json:"commissionPercent"`
	CommissionFixed     decimal.Decimal `json:"commissionFixed"`
	AmountSent          decimal.Decimal `json:"amountSent"`
	Commission          decimal.Decimal `json:"commission"`
	AmountToDeliver     decimal.Decimal `json:"amountToDeliver"`
	Recipient           Recipient       `json:"recipient"`
	PaymentProof        *Proof          `json:"paymentProof,omitempty"`
	DeliveryProof       *Proof          `json:"deliveryProof,omitempty"`
	ConfirmedRecipient  string          `json:"confirmedRecipientName,omitempty"`
	ConfirmedIDNumber   string          `json:"confirmedRecipientIdNumber,omitempty"`
	RejectionReason     string          `json:"rejectionReason,omitempty"`
	CancellationReason  string          `json:"cancellationReason,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	ProofUploadedAt     *time.Time      `json:"proofUploadedAt,omitempty"`
	ValidatedAt         *time.Time      `json:"validatedAt,omitempty"`
	RejectedAt          *time.Time      `json:"rejectedAt,omitempty"`
	ProcessingStartedAt *time.Time      `json:"processingStartedAt,omitempty"`
	DeliveredAt         *time.Time      `json:"deliveredAt,omitempty"`
	CompletedAt         *time.Time      `json:"completedAt,omitempty"`
	CancelledAt         *time.Time      `json:"cancelledAt,omitempty"`
}

// AuditEntry is the HTTP representation of one audit trail row.
type AuditEntry struct {
	ID             string    `json:"id"`
	Sequence       int64     `json:"sequence"`
	Action         string    `json:"action"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	NewStatus      string    `json:"newStatus"`
	ActorID        string    `json:"actorId"`
	ActorRole      string    `json:"actorRole"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Alert is the HTTP representation of a derived SLA alert.
type Alert struct {
	OrderID        string    `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	OwnerID        string    `json:"ownerId"`
	Status         string    `json:"status"`
	Severity       string    `json:"severity"`
	ElapsedSeconds int64     `json:"elapsedSeconds"`
	AnchoredAt     time.Time `json:"anchoredAt"`
}

type ProofLinks struct {
	PaymentProofURL  string `json:"paymentProofUrl,omitempty"`
	DeliveryProofURL string `json:"deliveryProofUrl,omitempty"`
}

func ToRecipient(r Recipient) domain.Recipient {
	return domain.Recipient{
		FullName:   strings.TrimSpace(r.FullName),
		Phone:      strings.TrimSpace(r.Phone),
		IDNumber:   strings.TrimSpace(r.IDNumber),
		Address:    strings.TrimSpace(r.Address),
		CardNumber: strings.TrimSpace(r.CardNumber),
		Notes:      strings.TrimSpace(r.Notes),
	}
}

func ToCreateInput(actor domain.Actor, p CreateOrder) ports.CreateOrderInput {
	return ports.CreateOrderInput{
		Actor:            actor,
		RemittanceTypeID: strings.TrimSpace(p.RemittanceTypeID),
		Kind:             domain.Kind(strings.TrimSpace(p.Kind)),
		AmountSent:       p.AmountSent,
		Recipient:        ToRecipient(p.Recipient),
	}
}

func ToTransitionInput(actor domain.Actor, orderID string, p Transition) ports.TransitionInput {
	return ports.TransitionInput{
		OrderID:        orderID,
		ExpectedStatus: domain.Status(strings.TrimSpace(p.ExpectedStatus)),
		Actor:          actor,
	}
}

func ToProof(p Proof) domain.ProofReference {
	return domain.ProofReference{URL: strings.TrimSpace(p.URL), Reference: strings.TrimSpace(p.Reference)}
}

// ParseStatuses reads repeated ?status= query values, accepting comma separated lists.
func ParseStatuses(values []string) []domain.Status {
	var statuses []domain.Status
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				statuses = append(statuses, domain.Status(part))
			}
		}
	}
	return statuses
}

func FromOrder(o *domain.Order) Order {
	out := Order{
		ID:                  o.ID,
		Number:              o.DisplayNumber(),
		Kind:                string(o.Kind),
		SenderID:            o.SenderID,
		Status:              string(o.Status),
		Version:             o.Version,
		RemittanceTypeID:    o.Snapshot.RemittanceTypeID,
		SourceCurrency:      o.Snapshot.SourceCurrency,
		DeliveryCurrency:    o.Snapshot.DeliveryCurrency,
		ExchangeRate:        o.Snapshot.ExchangeRate,
		CommissionPercent:   o.Snapshot.CommissionPercent,
		CommissionFixed:     o.Snapshot.CommissionFixed,
		AmountSent:          o.AmountSent,
		Commission:          o.Settlement.Commission,
		AmountToDeliver:     o.Settlement.AmountToDeliver,
		Recipient:           fromRecipient(o.Recipient),
		PaymentProof:        fromProof(o.PaymentProof),
		DeliveryProof:       fromProof(o.DeliveryProof),
		RejectionReason:     o.RejectionReason,
		CancellationReason:  o.CancellationReason,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
		ProofUploadedAt:     o.ProofUploadedAt,
		ValidatedAt:         o.ValidatedAt,
		RejectedAt:          o.RejectedAt,
		ProcessingStartedAt: o.ProcessingStartedAt,
		DeliveredAt:         o.DeliveredAt,
		CompletedAt:         o.CompletedAt,
		CancelledAt:         o.CancelledAt,
	}
	if o.Confirmation != nil {
		out.ConfirmedRecipient = o.Confirmation.RecipientName
		out.ConfirmedIDNumber = o.Confirmation.RecipientIDNumber
	}
	return out
}

func FromOrders(orders []*domain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromOrder(o))
	}
	return out
}

func FromAuditTrail(entries []domain.AuditEntry) []AuditEntry {
	out := make([]AuditEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntry{
			ID:             e.ID,
			Sequence:       e.Sequence,
			Action:         string(e.Action),
			PreviousStatus: string(e.PreviousStatus),
			NewStatus:      string(e.NewStatus),
			ActorID:        e.ActorID,
			ActorRole:      string(e.ActorRole),
			Reason:         e.Reason,
			OccurredAt:     e.OccurredAt,
		})
	}
	return out
}

func FromAlerts(alerts []domain.Alert) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, Alert{
			OrderID:        a.OrderID,
			OrderNumber:    a.OrderNumber,
			OwnerID:        a.OwnerID,
			Status:         string(a.Status),
			Severity:       string(a.Severity),
			ElapsedSeconds: int64(a.Elapsed / time.Second),
			AnchoredAt:     a.AnchoredAt,
		})
	}
	return out
}

func FromProofLinks(l *ports.ProofLinks) ProofLinks {
	return ProofLinks{PaymentProofURL: l.PaymentProofURL, DeliveryProofURL: l.DeliveryProofURL}
}

func fromRecipient(r domain.Recipient) Recipient {
	return Recipient{
		FullName:   r.FullName,
		Phone:      r.Phone,
		IDNumber:   r.IDNumber,
		Address:    r.Address,
		CardNumber: r.CardNumber,
		Notes:      r.Notes,
	}
}

func fromProof(p *domain.ProofReference) *Proof {
	if p == nil {
		return nil
	}
	return &Proof{URL: p.URL, Reference: p.Reference}
}
