package domain

import "time"

// EventKind identifies what a realtime event reports.
type EventKind string

const (
	EventStatusChanged EventKind = "status_changed"
	EventAlertRaised   EventKind = "alert_raised"
)

// StatusChange is the payload of a status_changed event.
type StatusChange struct {
	Action    Action
	From      Status
	To        Status
	ActorID   string
	ActorRole Role
	Reason    string
	Version   int64
}

// Event is published to realtime subscribers after a transition commits or an alert is raised.
type Event struct {
	ID           string
	Kind         EventKind
	OrderID      string
	OrderNumber  string
	OwnerID      string
	OccurredAt   time.Time
	StatusChange *StatusChange
	Alert        *Alert
}

// NewStatusChangedEvent builds the event for a committed transition or creation.
func NewStatusChangedEvent(id string, order *Order, entry AuditEntry) Event {
	return Event{
		ID:          id,
		Kind:        EventStatusChanged,
		OrderID:     order.ID,
		OrderNumber: order.DisplayNumber(),
		OwnerID:     order.SenderID,
		OccurredAt:  entry.OccurredAt,
		StatusChange: &StatusChange{
			Action:    entry.Action,
			From:      entry.PreviousStatus,
			To:        entry.NewStatus,
			ActorID:   entry.ActorID,
			ActorRole: entry.ActorRole,
			Reason:    entry.Reason,
			Version:   entry.Sequence,
		},
	}
}

// NewAlertRaisedEvent builds the event for an emitted alert.
func NewAlertRaisedEvent(id string, alert Alert) Event {
	a := alert
	return Event{
		ID:          id,
		Kind:        EventAlertRaised,
		OrderID:     alert.OrderID,
		OrderNumber: alert.OrderNumber,
		OwnerID:     alert.OwnerID,
		OccurredAt:  alert.GeneratedAt,
		Alert:       &a,
	}
}

// Filter selects the events a subscriber receives: every order, or only those owned by OwnerID.
type Filter struct {
	OwnerID string
	All     bool
}

// Matches reports whether e passes the filter.
func (f Filter) Matches(e Event) bool {
	if f.All {
		return true
	}
	return f.OwnerID != "" && f.OwnerID == e.OwnerID
}
