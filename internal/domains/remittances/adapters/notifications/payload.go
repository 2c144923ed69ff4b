package notifications

import (
	"time"

	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

// Payload is the message body consumed by the chat delivery channel.
type Payload struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	OwnerID     string    `json:"owner_id"`
	Action      string    `json:"action,omitempty"`
	Status      string    `json:"status"`
	Severity    string    `json:"severity,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func newPayload(n ports.Notification) Payload {
	return Payload{
		ID:          n.ID,
		Kind:        string(n.Kind),
		OrderID:     n.OrderID,
		OrderNumber: n.OrderNumber,
		OwnerID:     n.OwnerID,
		Action:      string(n.Action),
		Status:      string(n.Status),
		Severity:    string(n.Severity),
		Reason:      n.Reason,
		OccurredAt:  n.OccurredAt,
	}
}

// RoutingKey is whatsapp.<kind>, e.g. whatsapp.status_changed.
func RoutingKey(n ports.Notification) string {
	return "whatsapp." + string(n.Kind)
}
