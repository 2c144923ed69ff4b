package application

import (
	"errors"
	"fmt"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrRealtimeUnavailable is returned by Subscribe when no notifier is wired.
	ErrRealtimeUnavailable = errors.New("realtime notifications are not available")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrRecipientRequired) ||
		errors.Is(err, domain.ErrInvalidKind) ||
		errors.Is(err, domain.ErrInvalidActor) ||
		errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrInvalidSettlementInput) ||
		errors.Is(err, domain.ErrCommissionExceedsAmount) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
