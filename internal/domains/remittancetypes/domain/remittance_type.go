package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCode        = errors.New("remittance type code is required")
	ErrInvalidName        = errors.New("remittance type name is required")
	ErrInvalidCurrency    = errors.New("currency must be a 3-letter ISO code")
	ErrInvalidRate        = errors.New("exchange rate must be greater than zero")
	ErrInvalidCommission  = errors.New("commission percent must be within [0, 100) and fixed commission non-negative")
	ErrInvalidAmountRange = errors.New("amount range must satisfy 0 < min <= max")
	ErrInvalidDeliverySLA = errors.New("delivery days must satisfy 0 < warning <= max")
	ErrAlreadyInactive    = errors.New("remittance type version is already inactive")
)

var hundred = decimal.NewFromInt(100)

// Terms groups the economic and service-level values of one configuration version.
type Terms struct {
	Name              string
	SourceCurrency    string
	DeliveryCurrency  string
	ExchangeRate      decimal.Decimal
	CommissionPercent decimal.Decimal
	CommissionFixed   decimal.Decimal
	MinAmount         decimal.Decimal
	MaxAmount         decimal.Decimal
	MaxDeliveryDays   int
	WarningDays       int
}

// RemittanceType is one immutable version of an administrator-managed remittance configuration.
// Edits never mutate a version; they produce a new version under the same Code.
type RemittanceType struct {
	ID        string
	Code      string
	Version   int
	Terms     Terms
	Active    bool
	CreatedBy string
	CreatedAt time.Time
}

// NewRemittanceType validates terms and builds the first active version of a type.
func NewRemittanceType(id, code string, terms Terms, createdBy string, now time.Time) (*RemittanceType, error) {
	rt := &RemittanceType{
		ID:        id,
		Code:      strings.TrimSpace(code),
		Version:   1,
		Terms:     terms.normalized(),
		Active:    true,
		CreatedBy: strings.TrimSpace(createdBy),
		CreatedAt: now,
	}
	if err := rt.Validate(); err != nil {
		return nil, err
	}
	return rt, nil
}

// Revise returns the next version carrying the new terms. The receiver is deactivated.
func (rt *RemittanceType) Revise(id string, terms Terms, createdBy string, now time.Time) (*RemittanceType, error) {
	next := &RemittanceType{
		ID:        id,
		Code:      rt.Code,
		Version:   rt.Version + 1,
		Terms:     terms.normalized(),
		Active:    true,
		CreatedBy: strings.TrimSpace(createdBy),
		CreatedAt: now,
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	rt.Active = false
	return next, nil
}

// Deactivate stops the version from accepting new orders.
func (rt *RemittanceType) Deactivate() error {
	if !rt.Active {
		return ErrAlreadyInactive
	}
	rt.Active = false
	return nil
}

// Validate enforces invariants on the configuration version.
func (rt *RemittanceType) Validate() error {
	if rt.Code == "" {
		return ErrInvalidCode
	}
	return rt.Terms.Validate()
}

// Validate enforces invariants on a set of terms.
func (t Terms) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrInvalidName
	}
	if !isCurrencyCode(t.SourceCurrency) || !isCurrencyCode(t.DeliveryCurrency) {
		return ErrInvalidCurrency
	}
	if !t.ExchangeRate.IsPositive() {
		return ErrInvalidRate
	}
	if t.CommissionPercent.IsNegative() || t.CommissionPercent.GreaterThanOrEqual(hundred) || t.CommissionFixed.IsNegative() {
		return ErrInvalidCommission
	}
	if !t.MinAmount.IsPositive() || t.MinAmount.GreaterThan(t.MaxAmount) {
		return ErrInvalidAmountRange
	}
	if t.WarningDays <= 0 || t.MaxDeliveryDays <= 0 || t.WarningDays > t.MaxDeliveryDays {
		return ErrInvalidDeliverySLA
	}
	return nil
}

// AcceptsAmount reports whether amount lies within the inclusive [min, max] range.
func (t Terms) AcceptsAmount(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(t.MinAmount) && amount.LessThanOrEqual(t.MaxAmount)
}

func (t Terms) normalized() Terms {
	t.Name = strings.TrimSpace(t.Name)
	t.SourceCurrency = strings.ToUpper(strings.TrimSpace(t.SourceCurrency))
	t.DeliveryCurrency = strings.ToUpper(strings.TrimSpace(t.DeliveryCurrency))
	return t
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
