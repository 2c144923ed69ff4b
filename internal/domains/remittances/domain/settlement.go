package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MinorUnitPlaces is the rounding precision of every currency handled by the service.
const MinorUnitPlaces int32 = 2

var (
	ErrInvalidSettlementInput  = errors.New("settlement inputs must be non-negative with a positive exchange rate")
	ErrCommissionExceedsAmount = errors.New("commission leaves nothing to deliver")
)

var hundred = decimal.NewFromInt(100)

// Settlement is the commission and delivery amount derived for an order.
type Settlement struct {
	Commission      decimal.Decimal
	AmountToDeliver decimal.Decimal
}

// ComputeSettlement derives commission and delivery amount from the sent amount.
//
//	commission = amountSent * commissionPercent / 100 + commissionFixed
//	amountToDeliver = (amountSent - commission) * exchangeRate
//
// Intermediate values keep full precision; both outputs are rounded half-up to the minor
// unit once, at the end.
func ComputeSettlement(amountSent, exchangeRate, commissionPercent, commissionFixed decimal.Decimal) (Settlement, error) {
	if !amountSent.IsPositive() || !exchangeRate.IsPositive() || commissionPercent.IsNegative() || commissionFixed.IsNegative() {
		return Settlement{}, ErrInvalidSettlementInput
	}
	commission := amountSent.Mul(commissionPercent).Div(hundred).Add(commissionFixed)
	net := amountSent.Sub(commission)
	if !net.IsPositive() {
		return Settlement{}, ErrCommissionExceedsAmount
	}
	return Settlement{
		Commission:      roundMinor(commission),
		AmountToDeliver: roundMinor(net.Mul(exchangeRate)),
	}, nil
}

// roundMinor rounds half away from zero, which is half-up for the non-negative amounts used here.
func roundMinor(v decimal.Decimal) decimal.Decimal {
	return v.Round(MinorUnitPlaces)
}
