package application

import (
	"errors"
	"fmt"

	"github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid remittance type input")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidCode) ||
		errors.Is(err, domain.ErrInvalidName) ||
		errors.Is(err, domain.ErrInvalidCurrency) ||
		errors.Is(err, domain.ErrInvalidRate) ||
		errors.Is(err, domain.ErrInvalidCommission) ||
		errors.Is(err, domain.ErrInvalidAmountRange) ||
		errors.Is(err, domain.ErrInvalidDeliverySLA) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
