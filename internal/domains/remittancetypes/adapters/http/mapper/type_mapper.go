package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/ports"
)

// Terms is the inbound and outbound representation of a version's economics.
type Terms struct {
	Name              string          `json:"name" binding:"required"`
	SourceCurrency    string          `json:"sourceCurrency" binding:"required"`
	DeliveryCurrency  string          `json:"deliveryCurrency" binding:"required"`
	ExchangeRate      decimal.Decimal `json:"exchangeRate"`
	CommissionPercent decimal.Decimal `json:"commissionPercent"`
	CommissionFixed   decimal.Decimal `json:"commissionFixed"`
	MinAmount         decimal.Decimal `json:"minAmount"`
	MaxAmount         decimal.Decimal `json:"maxAmount"`
	MaxDeliveryDays   int             `json:"maxDeliveryDays"`
	WarningDays       int             `json:"warningDays"`
}

// CreateType is the payload of POST /v1/remittance-types.
type CreateType struct {
	Code string `json:"code" binding:"required"`
	Terms
}

type RemittanceType struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Version int    `json:"version"`
	Terms
	Active    bool      `json:"active"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type Quote struct {
	RemittanceTypeID string          `json:"remittanceTypeId"`
	AmountSent       decimal.Decimal `json:"amountSent"`
	Commission       decimal.Decimal `json:"commission"`
	AmountToDeliver  decimal.Decimal `json:"amountToDeliver"`
	SourceCurrency   string          `json:"sourceCurrency"`
	DeliveryCurrency string          `json:"deliveryCurrency"`
}

func ToTerms(t Terms) domain.Terms {
	return domain.Terms{
		Name:              t.Name,
		SourceCurrency:    t.SourceCurrency,
		DeliveryCurrency:  t.DeliveryCurrency,
		ExchangeRate:      t.ExchangeRate,
		CommissionPercent: t.CommissionPercent,
		CommissionFixed:   t.CommissionFixed,
		MinAmount:         t.MinAmount,
		MaxAmount:         t.MaxAmount,
		MaxDeliveryDays:   t.MaxDeliveryDays,
		WarningDays:       t.WarningDays,
	}
}

func FromType(rt *domain.RemittanceType) RemittanceType {
	return RemittanceType{
		ID:      rt.ID,
		Code:    rt.Code,
		Version: rt.Version,
		Terms: Terms{
			Name:              rt.Terms.Name,
			SourceCurrency:    rt.Terms.SourceCurrency,
			DeliveryCurrency:  rt.Terms.DeliveryCurrency,
			ExchangeRate:      rt.Terms.ExchangeRate,
			CommissionPercent: rt.Terms.CommissionPercent,
			CommissionFixed:   rt.Terms.CommissionFixed,
			MinAmount:         rt.Terms.MinAmount,
			MaxAmount:         rt.Terms.MaxAmount,
			MaxDeliveryDays:   rt.Terms.MaxDeliveryDays,
			WarningDays:       rt.Terms.WarningDays,
		},
		Active:    rt.Active,
		CreatedBy: rt.CreatedBy,
		CreatedAt: rt.CreatedAt,
	}
}

func FromTypes(types []*domain.RemittanceType) []RemittanceType {
	out := make([]RemittanceType, 0, len(types))
	for _, rt := range types {
		out = append(out, FromType(rt))
	}
	return out
}

func FromQuote(q *ports.Quote) Quote {
	return Quote{
		RemittanceTypeID: q.TypeID,
		AmountSent:       q.AmountSent,
		Commission:       q.Commission,
		AmountToDeliver:  q.AmountToDeliver,
		SourceCurrency:   q.SourceCurrency,
		DeliveryCurrency: q.DeliveryCurrency,
	}
}
