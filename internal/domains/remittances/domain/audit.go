package domain

import (
	"fmt"
	"time"
)

// AuditEntry is one immutable record of a status change. Sequence equals the order version
// the entry produced, so entries of one order are totally ordered.
type AuditEntry struct {
	ID             string
	OrderID        string
	Sequence       int64
	PreviousStatus Status
	NewStatus      Status
	Action         Action
	ActorID        string
	ActorRole      Role
	Reason         string
	OccurredAt     time.Time
}

// Genesis reports whether the entry records the creation of its order.
func (e AuditEntry) Genesis() bool { return e.PreviousStatus == "" }

// NewGenesisEntry records the creation of order.
func NewGenesisEntry(id string, order *Order, actor Actor) AuditEntry {
	return AuditEntry{
		ID:         id,
		OrderID:    order.ID,
		Sequence:   order.Version,
		NewStatus:  order.Status,
		Action:     ActionCreate,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		OccurredAt: order.CreatedAt,
	}
}

// NewTransitionEntry records a transition produced by Order.Apply.
func NewTransitionEntry(id, orderID string, t Transition) AuditEntry {
	return AuditEntry{
		ID:             id,
		OrderID:        orderID,
		Sequence:       t.Version,
		PreviousStatus: t.From,
		NewStatus:      t.To,
		Action:         t.Action,
		ActorID:        t.Actor.ID,
		ActorRole:      t.Actor.Role,
		Reason:         t.Reason,
		OccurredAt:     t.OccurredAt,
	}
}

// Replay folds an order's entries, in sequence order, from the genesis entry and returns the
// status they reconstruct. Broken chains and illegal edges are reported as errors.
func Replay(entries []AuditEntry) (Status, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("audit trail is empty")
	}
	first := entries[0]
	if !first.Genesis() || first.NewStatus != StatusCreated {
		return "", fmt.Errorf("audit trail does not start with creation (entry %s)", first.ID)
	}
	current := first.NewStatus
	prevSeq := first.Sequence
	prevAt := first.OccurredAt
	for _, e := range entries[1:] {
		if e.Sequence <= prevSeq {
			return current, fmt.Errorf("entry %s out of sequence: %d after %d", e.ID, e.Sequence, prevSeq)
		}
		if e.OccurredAt.Before(prevAt) {
			return current, fmt.Errorf("entry %s precedes its predecessor in time", e.ID)
		}
		if e.PreviousStatus != current {
			return current, fmt.Errorf("entry %s starts from %s but trail is at %s", e.ID, e.PreviousStatus, current)
		}
		if !CanTransition(e.PreviousStatus, e.NewStatus) {
			return current, fmt.Errorf("entry %s records illegal transition %s -> %s", e.ID, e.PreviousStatus, e.NewStatus)
		}
		current = e.NewStatus
		prevSeq = e.Sequence
		prevAt = e.OccurredAt
	}
	return current, nil
}

// VerifyReplay compares the replayed trail with the persisted status of order.
// It returns nil when they agree.
func VerifyReplay(order *Order, entries []AuditEntry) *IntegrityMismatch {
	replayed, err := Replay(entries)
	if err != nil {
		return &IntegrityMismatch{OrderID: order.ID, Persisted: order.Status, Replayed: replayed, Detail: err.Error()}
	}
	if replayed != order.Status {
		return &IntegrityMismatch{
			OrderID:   order.ID,
			Persisted: order.Status,
			Replayed:  replayed,
			Detail:    fmt.Sprintf("trail replays to %s but order is %s", replayed, order.Status),
		}
	}
	return nil
}
