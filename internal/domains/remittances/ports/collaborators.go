package ports

import (
	"context"
	"time"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	typesdomain "github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
)

// RemittanceTypeLookup resolves the configuration version an order is created against.
type RemittanceTypeLookup interface {
	GetType(ctx context.Context, id string) (*typesdomain.RemittanceType, error)
}

// Authorizer decides whether an already-authenticated actor may perform action on order.
// order is nil for ActionCreate.
type Authorizer interface {
	Authorize(ctx context.Context, actor domain.Actor, action domain.Action, order *domain.Order) error
}

// ProofResolver turns an opaque proof reference into a retrievable URL.
type ProofResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Notification is the structured payload handed to the chat notification channel.
// Templating and delivery belong to the channel.
type Notification struct {
	ID          string
	Kind        domain.EventKind
	OrderID     string
	OrderNumber string
	OwnerID     string
	Action      domain.Action
	Status      domain.Status
	Severity    domain.Severity
	Reason      string
	OccurredAt  time.Time
}

// NotificationFromEvent derives the notification payload of a realtime event.
func NotificationFromEvent(e domain.Event) Notification {
	n := Notification{
		ID:          e.ID,
		Kind:        e.Kind,
		OrderID:     e.OrderID,
		OrderNumber: e.OrderNumber,
		OwnerID:     e.OwnerID,
		OccurredAt:  e.OccurredAt,
	}
	if e.StatusChange != nil {
		n.Action = e.StatusChange.Action
		n.Status = e.StatusChange.To
		n.Reason = e.StatusChange.Reason
	}
	if e.Alert != nil {
		n.Status = e.Alert.Status
		n.Severity = e.Alert.Severity
	}
	return n
}

// NotificationDispatcher delivers notifications out of band. Failures never affect order state.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// NotificationPublisher is the transport a dispatcher ultimately hands payloads to.
type NotificationPublisher interface {
	Publish(ctx context.Context, n Notification) error
}

// AlertDeduplicator suppresses repeats of the same (order, severity) inside window.
type AlertDeduplicator interface {
	// ShouldEmit records the key and returns true when it was not seen within window.
	ShouldEmit(ctx context.Context, orderID string, severity domain.Severity, window time.Duration) (bool, error)
}
