package realtime

import (
	"time"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
)

// Message is the JSON form of an event, shared by the Postgres bridge and the SSE stream.
type Message struct {
	ID          string         `json:"id"`
	Kind        string         `json:"kind"`
	OrderID     string         `json:"orderId"`
	OrderNumber string         `json:"orderNumber"`
	OwnerID     string         `json:"ownerId"`
	OccurredAt  time.Time      `json:"occurredAt"`
	Change      *ChangeMessage `json:"statusChange,omitempty"`
	Alert       *AlertMessage  `json:"alert,omitempty"`
}

type ChangeMessage struct {
	Action    string `json:"action"`
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	ActorID   string `json:"actorId"`
	ActorRole string `json:"actorRole"`
	Reason    string `json:"reason,omitempty"`
	Version   int64  `json:"version"`
}

type AlertMessage struct {
	Status         string    `json:"status"`
	Severity       string    `json:"severity"`
	ElapsedSeconds int64     `json:"elapsedSeconds"`
	AnchoredAt     time.Time `json:"anchoredAt"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// NewMessage converts a domain event to its wire form.
func NewMessage(e domain.Event) Message {
	m := Message{
		ID:          e.ID,
		Kind:        string(e.Kind),
		OrderID:     e.OrderID,
		OrderNumber: e.OrderNumber,
		OwnerID:     e.OwnerID,
		OccurredAt:  e.OccurredAt,
	}
	if c := e.StatusChange; c != nil {
		m.Change = &ChangeMessage{
			Action:    string(c.Action),
			From:      string(c.From),
			To:        string(c.To),
			ActorID:   c.ActorID,
			ActorRole: string(c.ActorRole),
			Reason:    c.Reason,
			Version:   c.Version,
		}
	}
	if a := e.Alert; a != nil {
		m.Alert = &AlertMessage{
			Status:         string(a.Status),
			Severity:       string(a.Severity),
			ElapsedSeconds: int64(a.Elapsed / time.Second),
			AnchoredAt:     a.AnchoredAt,
			GeneratedAt:    a.GeneratedAt,
		}
	}
	return m
}

// Event converts the wire form back to a domain event.
func (m Message) Event() domain.Event {
	e := domain.Event{
		ID:          m.ID,
		Kind:        domain.EventKind(m.Kind),
		OrderID:     m.OrderID,
		OrderNumber: m.OrderNumber,
		OwnerID:     m.OwnerID,
		OccurredAt:  m.OccurredAt,
	}
	if c := m.Change; c != nil {
		e.StatusChange = &domain.StatusChange{
			Action:    domain.Action(c.Action),
			From:      domain.Status(c.From),
			To:        domain.Status(c.To),
			ActorID:   c.ActorID,
			ActorRole: domain.Role(c.ActorRole),
			Reason:    c.Reason,
			Version:   c.Version,
		}
	}
	if a := m.Alert; a != nil {
		e.Alert = &domain.Alert{
			OrderID:     m.OrderID,
			OrderNumber: m.OrderNumber,
			OwnerID:     m.OwnerID,
			Status:      domain.Status(a.Status),
			Severity:    domain.Severity(a.Severity),
			Elapsed:     time.Duration(a.ElapsedSeconds) * time.Second,
			AnchoredAt:  a.AnchoredAt,
			GeneratedAt: a.GeneratedAt,
		}
	}
	return e
}
