package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrRecipientRequired = errors.New("recipient full name is required")
	ErrInvalidKind       = errors.New("order kind must be remittance or purchase")
	ErrInvalidActor      = errors.New("actor id and role are required")
	ErrInvalidAmount     = errors.New("amount sent must be greater than zero")
)

// RejectionReason classifies why a transition was refused.
type RejectionReason string

const (
	ReasonStaleState           RejectionReason = "stale_state"
	ReasonUnauthorizedActor    RejectionReason = "unauthorized_actor"
	ReasonInvalidTarget        RejectionReason = "invalid_target"
	ReasonMissingRequiredField RejectionReason = "missing_required_field"
)

// Sentinels usable with errors.Is against any *TransitionRejectedError of the same reason.
var (
	ErrStaleState           = &TransitionRejectedError{Reason: ReasonStaleState}
	ErrUnauthorizedActor    = &TransitionRejectedError{Reason: ReasonUnauthorizedActor}
	ErrInvalidTarget        = &TransitionRejectedError{Reason: ReasonInvalidTarget}
	ErrMissingRequiredField = &TransitionRejectedError{Reason: ReasonMissingRequiredField}
)

// TransitionRejectedError is returned when a guarded transition is refused.
type TransitionRejectedError struct {
	Reason   RejectionReason
	OrderID  string
	Action   Action
	Expected Status
	Current  Status
	Field    string
}

func (e *TransitionRejectedError) Error() string {
	switch e.Reason {
	case ReasonStaleState:
		return fmt.Sprintf("transition %s on order %s rejected: stale state (expected %s, found %s)", e.Action, e.OrderID, e.Expected, e.Current)
	case ReasonInvalidTarget:
		return fmt.Sprintf("transition %s on order %s rejected: not allowed from %s", e.Action, e.OrderID, e.Current)
	case ReasonMissingRequiredField:
		return fmt.Sprintf("transition %s on order %s rejected: %s is required", e.Action, e.OrderID, e.Field)
	default:
		return fmt.Sprintf("transition %s on order %s rejected: %s", e.Action, e.OrderID, e.Reason)
	}
}

// Is matches any TransitionRejectedError carrying the same reason.
func (e *TransitionRejectedError) Is(target error) bool {
	var other *TransitionRejectedError
	if !errors.As(target, &other) {
		return false
	}
	return other.Reason == e.Reason
}

// UserMessage is the text shown to the person whose action was refused.
// It never reveals which roles are permitted.
func (e *TransitionRejectedError) UserMessage() string {
	switch e.Reason {
	case ReasonStaleState:
		return "this order was just updated by someone else, please refresh"
	case ReasonUnauthorizedActor:
		return "you are not authorized for this action"
	case ReasonInvalidTarget:
		return fmt.Sprintf("an order in status %s cannot be moved with %s", e.Current, e.Action)
	case ReasonMissingRequiredField:
		return fmt.Sprintf("%s is required", e.Field)
	default:
		return "the action could not be applied"
	}
}

// AmountOutOfRangeError reports an amount outside the configured [Min, Max].
type AmountOutOfRangeError struct {
	Amount decimal.Decimal
	Min    decimal.Decimal
	Max    decimal.Decimal
}

func (e *AmountOutOfRangeError) Error() string {
	return fmt.Sprintf("amount %s is out of range: must be between %s and %s",
		e.Amount.StringFixed(MinorUnitPlaces), e.Min.StringFixed(MinorUnitPlaces), e.Max.StringFixed(MinorUnitPlaces))
}

// ConfigInactiveError reports a remittance type version that no longer accepts new orders.
type ConfigInactiveError struct {
	ConfigID string
}

func (e *ConfigInactiveError) Error() string {
	return fmt.Sprintf("remittance type %s is not accepting new orders", e.ConfigID)
}

// NotificationDeliveryError wraps a failed side-effect notification. It is logged, never returned
// as a transition failure.
type NotificationDeliveryError struct {
	OrderID string
	Kind    string
	Err     error
}

func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("notification %s for order %s not delivered: %v", e.Kind, e.OrderID, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error { return e.Err }

// IntegrityMismatch describes one order whose audit trail does not replay to its status.
type IntegrityMismatch struct {
	OrderID   string
	Persisted Status
	Replayed  Status
	Detail    string
}

// IntegrityCheckFailedError lists every order whose audit trail diverges from its persisted status.
type IntegrityCheckFailedError struct {
	Mismatches []IntegrityMismatch
}

func (e *IntegrityCheckFailedError) Error() string {
	ids := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		ids = append(ids, m.OrderID)
	}
	return fmt.Sprintf("audit trail integrity check failed for %d order(s): %s", len(e.Mismatches), strings.Join(ids, ", "))
}
