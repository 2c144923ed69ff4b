package domain

// Status enumerates the order lifecycle.
type Status string

const (
	StatusCreated       Status = "created"
	StatusProofUploaded Status = "proof_uploaded"
	StatusValidated     Status = "validated"
	StatusRejected      Status = "rejected"
	StatusProcessing    Status = "processing"
	StatusDelivered     Status = "delivered"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{
	StatusCreated,
	StatusProofUploaded,
	StatusValidated,
	StatusRejected,
	StatusProcessing,
	StatusDelivered,
	StatusCompleted,
	StatusCancelled,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Action names a guarded lifecycle operation.
type Action string

const (
	ActionCreate          Action = "create"
	ActionUploadProof     Action = "upload_proof"
	ActionValidatePayment Action = "validate_payment"
	ActionRejectPayment   Action = "reject_payment"
	ActionStartProcessing Action = "start_processing"
	ActionConfirmDelivery Action = "confirm_delivery"
	ActionComplete        Action = "complete"
	ActionCancel          Action = "cancel"
)

type transitionRule struct {
	from []Status
	to   Status
}

var transitionRules = map[Action]transitionRule{
	ActionUploadProof:     {from: []Status{StatusCreated, StatusRejected}, to: StatusProofUploaded},
	ActionValidatePayment: {from: []Status{StatusProofUploaded}, to: StatusValidated},
	ActionRejectPayment:   {from: []Status{StatusProofUploaded}, to: StatusRejected},
	ActionStartProcessing: {from: []Status{StatusValidated}, to: StatusProcessing},
	ActionConfirmDelivery: {from: []Status{StatusProcessing}, to: StatusDelivered},
	ActionComplete:        {from: []Status{StatusDelivered}, to: StatusCompleted},
	ActionCancel: {
		from: []Status{StatusCreated, StatusProofUploaded, StatusValidated, StatusRejected, StatusProcessing},
		to:   StatusCancelled,
	},
}

// senderActions lists what a sender may do to their own order, keyed by the current status.
var senderActions = map[Action][]Status{
	ActionUploadProof: {StatusCreated, StatusRejected},
	ActionCancel:      {StatusCreated, StatusProofUploaded, StatusRejected},
}

// TargetFor returns the status reached by applying action from the given status.
func TargetFor(action Action, from Status) (Status, bool) {
	rule, ok := transitionRules[action]
	if !ok {
		return "", false
	}
	for _, allowed := range rule.from {
		if allowed == from {
			return rule.to, true
		}
	}
	return "", false
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, rule := range transitionRules {
		if rule.to != to {
			continue
		}
		for _, allowed := range rule.from {
			if allowed == from {
				return true
			}
		}
	}
	return false
}

// RolePermits reports whether role may perform action on an order currently in from.
// Ownership is checked separately.
func RolePermits(role Role, action Action, from Status) bool {
	switch role {
	case RoleAdmin:
		return action != ActionUploadProof && action != ActionCreate
	case RoleSender:
		if action == ActionCreate {
			return true
		}
		for _, allowed := range senderActions[action] {
			if allowed == from {
				return true
			}
		}
		return false
	default:
		return false
	}
}
