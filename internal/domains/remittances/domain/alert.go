package domain

import "time"

// Severity is the derived SLA state of a timed order.
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
	SeverityBreach  Severity = "breach"
)

// Day is the unit remittance types express delivery windows in.
const Day = 24 * time.Hour

// SLA holds the warning and breach thresholds of one timed state.
type SLA struct {
	Warning time.Duration
	Breach  time.Duration
}

// Enabled reports whether both thresholds are set.
func (s SLA) Enabled() bool { return s.Warning > 0 && s.Breach > 0 }

// DeliverySLA converts the day-based thresholds captured on an order.
func DeliverySLA(warningDays, maxDeliveryDays int) SLA {
	return SLA{
		Warning: time.Duration(warningDays) * Day,
		Breach:  time.Duration(maxDeliveryDays) * Day,
	}
}

// Classify maps elapsed time onto a severity:
//
//	elapsed < Warning          -> ok
//	Warning <= elapsed < Breach -> warning
//	elapsed >= Breach          -> breach
func Classify(elapsed time.Duration, sla SLA) Severity {
	switch {
	case elapsed >= sla.Breach:
		return SeverityBreach
	case elapsed >= sla.Warning:
		return SeverityWarning
	default:
		return SeverityOK
	}
}

// Alert is a derived, non-authoritative observation about an order.
type Alert struct {
	OrderID     string
	OrderNumber string
	OwnerID     string
	Status      Status
	Severity    Severity
	Elapsed     time.Duration
	AnchoredAt  time.Time
	GeneratedAt time.Time
}

// TimedAnchor returns the timestamp an order's current state is measured from.
// Only states with an SLA have one.
func (o *Order) TimedAnchor() (time.Time, bool) {
	switch o.Status {
	case StatusProcessing:
		if o.ProcessingStartedAt != nil {
			return *o.ProcessingStartedAt, true
		}
	case StatusProofUploaded:
		if o.ProofUploadedAt != nil {
			return *o.ProofUploadedAt, true
		}
	case StatusCreated:
		return o.CreatedAt, true
	}
	return time.Time{}, false
}

// Evaluate classifies order against sla at now. ok is false when the state has no anchor
// or the severity is ok.
func Evaluate(o *Order, sla SLA, now time.Time) (Alert, bool) {
	anchor, found := o.TimedAnchor()
	if !found || !sla.Enabled() {
		return Alert{}, false
	}
	elapsed := now.Sub(anchor)
	severity := Classify(elapsed, sla)
	if severity == SeverityOK {
		return Alert{}, false
	}
	return Alert{
		OrderID:     o.ID,
		OrderNumber: o.DisplayNumber(),
		OwnerID:     o.SenderID,
		Status:      o.Status,
		Severity:    severity,
		Elapsed:     elapsed,
		AnchoredAt:  anchor,
		GeneratedAt: now,
	}, true
}
