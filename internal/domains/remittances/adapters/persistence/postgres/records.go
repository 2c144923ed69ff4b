package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
)

// OrderNumberSequence feeds human-readable order numbers. It is created by platform/migrations.
const OrderNumberSequence = "order_number_seq"

// OrderRecord maps the order aggregate to a relational row.
type OrderRecord struct {
	ID                     string          `gorm:"primaryKey;column:id;type:uuid"`
	Number                 int64           `gorm:"column:number;uniqueIndex"`
	Kind                   string          `gorm:"column:kind;type:varchar(16)"`
	SenderID               string          `gorm:"column:sender_id;index"`
	RemittanceTypeID       string          `gorm:"column:remittance_type_id;type:uuid;index"`
	SourceCurrency         string          `gorm:"column:source_currency;size:3"`
	DeliveryCurrency       string          `gorm:"column:delivery_currency;size:3"`
	ExchangeRate           decimal.Decimal `gorm:"column:exchange_rate;type:numeric(18,6)"`
	CommissionPercent      decimal.Decimal `gorm:"column:commission_percent;type:numeric(7,4)"`
	CommissionFixed        decimal.Decimal `gorm:"column:commission_fixed;type:numeric(18,2)"`
	WarningDays            int             `gorm:"column:warning_days"`
	MaxDeliveryDays        int             `gorm:"column:max_delivery_days"`
	AmountSent             decimal.Decimal `gorm:"column:amount_sent;type:numeric(18,2)"`
	Commission             decimal.Decimal `gorm:"column:commission;type:numeric(18,2)"`
	AmountToDeliver        decimal.Decimal `gorm:"column:amount_to_deliver;type:numeric(18,2)"`
	RecipientName          string          `gorm:"column:recipient_name"`
	RecipientPhone         string          `gorm:"column:recipient_phone"`
	RecipientIDNumber      string          `gorm:"column:recipient_id_number"`
	RecipientAddress       string          `gorm:"column:recipient_address"`
	RecipientCardNumber    string          `gorm:"column:recipient_card_number"`
	RecipientNotes         string          `gorm:"column:recipient_notes"`
	Status                 string          `gorm:"column:status;type:varchar(32);index"`
	Version                int64           `gorm:"column:version"`
	PaymentProofURL        *string         `gorm:"column:payment_proof_url"`
	PaymentProofReference  string          `gorm:"column:payment_proof_reference"`
	DeliveryProofURL       *string         `gorm:"column:delivery_proof_url"`
	DeliveryProofReference string          `gorm:"column:delivery_proof_reference"`
	ConfirmedRecipientName string          `gorm:"column:confirmed_recipient_name"`
	ConfirmedRecipientID   string          `gorm:"column:confirmed_recipient_id_number"`
	CreatedAt              time.Time       `gorm:"column:created_at;index"`
	UpdatedAt              time.Time       `gorm:"column:updated_at"`
	ProofUploadedAt        *time.Time      `gorm:"column:proof_uploaded_at"`
	ValidatedAt            *time.Time      `gorm:"column:validated_at"`
	ValidatedBy            string          `gorm:"column:validated_by"`
	RejectedAt             *time.Time      `gorm:"column:rejected_at"`
	RejectedBy             string          `gorm:"column:rejected_by"`
	RejectionReason        string          `gorm:"column:rejection_reason"`
	ProcessingStartedAt    *time.Time      `gorm:"column:processing_started_at"`
	ProcessingStartedBy    string          `gorm:"column:processing_started_by"`
	DeliveredAt            *time.Time      `gorm:"column:delivered_at"`
	DeliveredBy            string          `gorm:"column:delivered_by"`
	CompletedAt            *time.Time      `gorm:"column:completed_at"`
	CancelledAt            *time.Time      `gorm:"column:cancelled_at"`
	CancelledBy            string          `gorm:"column:cancelled_by"`
	CancellationReason     string          `gorm:"column:cancellation_reason"`
}

func (OrderRecord) TableName() string { return "orders" }

// AuditEntryRecord is an append-only audit row. (order_id, sequence) is unique, so two writers
// can never append the same step.
type AuditEntryRecord struct {
	ID             string    `gorm:"primaryKey;column:id;size:26"`
	OrderID        string    `gorm:"column:order_id;type:uuid;uniqueIndex:idx_order_audit_entries_order_sequence"`
	Sequence       int64     `gorm:"column:sequence;uniqueIndex:idx_order_audit_entries_order_sequence"`
	PreviousStatus string    `gorm:"column:previous_status;type:varchar(32)"`
	NewStatus      string    `gorm:"column:new_status;type:varchar(32)"`
	Action         string    `gorm:"column:action;type:varchar(32)"`
	ActorID        string    `gorm:"column:actor_id"`
	ActorRole      string    `gorm:"column:actor_role;type:varchar(16)"`
	Reason         string    `gorm:"column:reason"`
	OccurredAt     time.Time `gorm:"column:occurred_at"`
}

func (AuditEntryRecord) TableName() string { return "order_audit_entries" }

func toRecord(o *domain.Order) OrderRecord {
	r := OrderRecord{
		ID:                  o.ID,
		Number:              o.Number,
		Kind:                string(o.Kind),
		SenderID:            o.SenderID,
		RemittanceTypeID:    o.Snapshot.RemittanceTypeID,
		SourceCurrency:      o.Snapshot.SourceCurrency,
		DeliveryCurrency:    o.Snapshot.DeliveryCurrency,
		ExchangeRate:        o.Snapshot.ExchangeRate,
		CommissionPercent:   o.Snapshot.CommissionPercent,
		CommissionFixed:     o.Snapshot.CommissionFixed,
		WarningDays:         o.Snapshot.WarningDays,
		MaxDeliveryDays:     o.Snapshot.MaxDeliveryDays,
		AmountSent:          o.AmountSent,
		Commission:          o.Settlement.Commission,
		AmountToDeliver:     o.Settlement.AmountToDeliver,
		RecipientName:       o.Recipient.FullName,
		RecipientPhone:      o.Recipient.Phone,
		RecipientIDNumber:   o.Recipient.IDNumber,
		RecipientAddress:    o.Recipient.Address,
		RecipientCardNumber: o.Recipient.CardNumber,
		RecipientNotes:      o.Recipient.Notes,
		Status:              string(o.Status),
		Version:             o.Version,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
		ProofUploadedAt:     o.ProofUploadedAt,
		ValidatedAt:         o.ValidatedAt,
		ValidatedBy:         o.ValidatedBy,
		RejectedAt:          o.RejectedAt,
		RejectedBy:          o.RejectedBy,
		RejectionReason:     o.RejectionReason,
		ProcessingStartedAt: o.ProcessingStartedAt,
		ProcessingStartedBy: o.ProcessingStartedBy,
		DeliveredAt:         o.DeliveredAt,
		DeliveredBy:         o.DeliveredBy,
		CompletedAt:         o.CompletedAt,
		CancelledAt:         o.CancelledAt,
		CancelledBy:         o.CancelledBy,
		CancellationReason:  o.CancellationReason,
	}
	if o.PaymentProof != nil {
		url := o.PaymentProof.URL
		r.PaymentProofURL = &url
		r.PaymentProofReference = o.PaymentProof.Reference
	}
	if o.DeliveryProof != nil {
		url := o.DeliveryProof.URL
		r.DeliveryProofURL = &url
		r.DeliveryProofReference = o.DeliveryProof.Reference
	}
	if o.Confirmation != nil {
		r.ConfirmedRecipientName = o.Confirmation.RecipientName
		r.ConfirmedRecipientID = o.Confirmation.RecipientIDNumber
	}
	return r
}

// mutableColumns lists the columns a transition may change.
func (r OrderRecord) mutableColumns() map[string]any {
	return map[string]any{
		"status":                        r.Status,
		"version":                       r.Version,
		"updated_at":                    r.UpdatedAt,
		"payment_proof_url":             r.PaymentProofURL,
		"payment_proof_reference":       r.PaymentProofReference,
		"delivery_proof_url":            r.DeliveryProofURL,
		"delivery_proof_reference":      r.DeliveryProofReference,
		"confirmed_recipient_name":      r.ConfirmedRecipientName,
		"confirmed_recipient_id_number": r.ConfirmedRecipientID,
		"proof_uploaded_at":             r.ProofUploadedAt,
		"validated_at":                  r.ValidatedAt,
		"validated_by":                  r.ValidatedBy,
		"rejected_at":                   r.RejectedAt,
		"rejected_by":                   r.RejectedBy,
		"rejection_reason":              r.RejectionReason,
		"processing_started_at":         r.ProcessingStartedAt,
		"processing_started_by":         r.ProcessingStartedBy,
		"delivered_at":                  r.DeliveredAt,
		"delivered_by":                  r.DeliveredBy,
		"completed_at":                  r.CompletedAt,
		"cancelled_at":                  r.CancelledAt,
		"cancelled_by":                  r.CancelledBy,
		"cancellation_reason":           r.CancellationReason,
	}
}

func (r OrderRecord) toDomain() *domain.Order {
	o := &domain.Order{
		ID:       r.ID,
		Number:   r.Number,
		Kind:     domain.Kind(r.Kind),
		SenderID: r.SenderID,
		Snapshot: domain.Snapshot{
			RemittanceTypeID:  r.RemittanceTypeID,
			SourceCurrency:    r.SourceCurrency,
			DeliveryCurrency:  r.DeliveryCurrency,
			ExchangeRate:      r.ExchangeRate,
			CommissionPercent: r.CommissionPercent,
			CommissionFixed:   r.CommissionFixed,
			WarningDays:       r.WarningDays,
			MaxDeliveryDays:   r.MaxDeliveryDays,
		},
		AmountSent: r.AmountSent,
		Settlement: domain.Settlement{Commission: r.Commission, AmountToDeliver: r.AmountToDeliver},
		Recipient: domain.Recipient{
			FullName:   r.RecipientName,
			Phone:      r.RecipientPhone,
			IDNumber:   r.RecipientIDNumber,
			Address:    r.RecipientAddress,
			CardNumber: r.RecipientCardNumber,
			Notes:      r.RecipientNotes,
		},
		Status:              domain.Status(r.Status),
		Version:             r.Version,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
		ProofUploadedAt:     utc(r.ProofUploadedAt),
		ValidatedAt:         utc(r.ValidatedAt),
		ValidatedBy:         r.ValidatedBy,
		RejectedAt:          utc(r.RejectedAt),
		RejectedBy:          r.RejectedBy,
		RejectionReason:     r.RejectionReason,
		ProcessingStartedAt: utc(r.ProcessingStartedAt),
		ProcessingStartedBy: r.ProcessingStartedBy,
		DeliveredAt:         utc(r.DeliveredAt),
		DeliveredBy:         r.DeliveredBy,
		CompletedAt:         utc(r.CompletedAt),
		CancelledAt:         utc(r.CancelledAt),
		CancelledBy:         r.CancelledBy,
		CancellationReason:  r.CancellationReason,
	}
	if r.PaymentProofURL != nil {
		o.PaymentProof = &domain.ProofReference{URL: *r.PaymentProofURL, Reference: r.PaymentProofReference}
	}
	if r.DeliveryProofURL != nil {
		o.DeliveryProof = &domain.ProofReference{URL: *r.DeliveryProofURL, Reference: r.DeliveryProofReference}
	}
	if r.ConfirmedRecipientName != "" || r.ConfirmedRecipientID != "" {
		o.Confirmation = &domain.DeliveryConfirmation{RecipientName: r.ConfirmedRecipientName, RecipientIDNumber: r.ConfirmedRecipientID}
	}
	return o
}

func toEntryRecord(e domain.AuditEntry) AuditEntryRecord {
	return AuditEntryRecord{
		ID:             e.ID,
		OrderID:        e.OrderID,
		Sequence:       e.Sequence,
		PreviousStatus: string(e.PreviousStatus),
		NewStatus:      string(e.NewStatus),
		Action:         string(e.Action),
		ActorID:        e.ActorID,
		ActorRole:      string(e.ActorRole),
		Reason:         e.Reason,
		OccurredAt:     e.OccurredAt,
	}
}

func (r AuditEntryRecord) toDomain() domain.AuditEntry {
	return domain.AuditEntry{
		ID:             r.ID,
		OrderID:        r.OrderID,
		Sequence:       r.Sequence,
		PreviousStatus: domain.Status(r.PreviousStatus),
		NewStatus:      domain.Status(r.NewStatus),
		Action:         domain.Action(r.Action),
		ActorID:        r.ActorID,
		ActorRole:      domain.Role(r.ActorRole),
		Reason:         r.Reason,
		OccurredAt:     r.OccurredAt.UTC(),
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
