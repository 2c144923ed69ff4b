package handlers

import (
	"errors"
	"net/http"

	"github.com/remesas/remittance-api/internal/domains/remittances/application"
	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
	typesports "github.com/remesas/remittance-api/internal/domains/remittancetypes/ports"
	apierrors "github.com/remesas/remittance-api/internal/shared/errors"
)

// NewResponder returns a problem+json responder that understands order lifecycle errors.
func NewResponder() *apierrors.ChainedResponder {
	return apierrors.NewChainedResponder("", MapOrderError)
}

// MapOrderError maps lifecycle and catalog errors to problem details.
func MapOrderError(err error) (apierrors.ProblemDetail, bool) {
	var rejected *domain.TransitionRejectedError
	if errors.As(err, &rejected) {
		return rejectedProblem(rejected), true
	}
	var outOfRange *domain.AmountOutOfRangeError
	if errors.As(err, &outOfRange) {
		return apierrors.ProblemDetail{
			Type:   apierrors.TypeAmountOutOfRange,
			Title:  "Amount Out Of Range",
			Status: http.StatusUnprocessableEntity,
			Detail: outOfRange.Error(),
		}.
			WithExtension("min", outOfRange.Min.StringFixed(domain.MinorUnitPlaces)).
			WithExtension("max", outOfRange.Max.StringFixed(domain.MinorUnitPlaces)), true
	}
	var inactive *domain.ConfigInactiveError
	if errors.As(err, &inactive) {
		return apierrors.ProblemDetail{
			Type:   apierrors.TypeConfigInactive,
			Title:  "Remittance Type Inactive",
			Status: http.StatusConflict,
			Detail: inactive.Error(),
		}.WithExtension("remittanceTypeId", inactive.ConfigID), true
	}
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail("order not found"), true
	case errors.Is(err, ports.ErrIdempotencyConflict), errors.Is(err, ports.ErrIdempotencyInProgress):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, typesports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail("remittance type not found"), true
	case errors.Is(err, application.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrRealtimeUnavailable):
		return apierrors.ErrUnavailable.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

func rejectedProblem(e *domain.TransitionRejectedError) apierrors.ProblemDetail {
	reason := string(e.Reason)
	switch e.Reason {
	case domain.ReasonStaleState:
		return apierrors.NewRejectedTransitionProblem(http.StatusConflict, apierrors.TypeStaleState, "Stale Order State", reason, e.UserMessage()).
			WithExtension("currentStatus", string(e.Current))
	case domain.ReasonUnauthorizedActor:
		return apierrors.NewRejectedTransitionProblem(http.StatusForbidden, apierrors.TypeForbidden, "Forbidden", reason, e.UserMessage())
	case domain.ReasonMissingRequiredField:
		return apierrors.NewRejectedTransitionProblem(http.StatusUnprocessableEntity, apierrors.TypeMissingField, "Missing Required Field", reason, e.UserMessage()).
			WithExtension("field", e.Field)
	default:
		return apierrors.NewRejectedTransitionProblem(http.StatusConflict, apierrors.TypeInvalidTransition, "Invalid Transition", reason, e.UserMessage()).
			WithExtension("currentStatus", string(e.Current))
	}
}
