package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func validTerms() Terms {
	return Terms{
		Name:              "Cash delivery",
		SourceCurrency:    "usd",
		DeliveryCurrency:  "CUP",
		ExchangeRate:      decimal.NewFromInt(320),
		CommissionPercent: decimal.RequireFromString("2.5"),
		CommissionFixed:   decimal.Zero,
		MinAmount:         decimal.NewFromInt(10),
		MaxAmount:         decimal.NewFromInt(1000),
		WarningDays:       2,
		MaxDeliveryDays:   3,
	}
}

func TestNewRemittanceType_NormalisesCurrencies(t *testing.T) {
	rt, err := NewRemittanceType("v1", " USD-CUP ", validTerms(), "admin", time.Now())
	require.NoError(t, err)
	require.Equal(t, "USD-CUP", rt.Code)
	require.Equal(t, "USD", rt.Terms.SourceCurrency)
	require.Equal(t, 1, rt.Version)
	require.True(t, rt.Active)
}

func TestTerms_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Terms)
		err    error
	}{
		{"missing name", func(t *Terms) { t.Name = "" }, ErrInvalidName},
		{"bad currency", func(t *Terms) { t.DeliveryCurrency = "PESO" }, ErrInvalidCurrency},
		{"zero rate", func(t *Terms) { t.ExchangeRate = decimal.Zero }, ErrInvalidRate},
		{"hundred percent", func(t *Terms) { t.CommissionPercent = decimal.NewFromInt(100) }, ErrInvalidCommission},
		{"negative fixed", func(t *Terms) { t.CommissionFixed = decimal.NewFromInt(-1) }, ErrInvalidCommission},
		{"min above max", func(t *Terms) { t.MinAmount = decimal.NewFromInt(2000) }, ErrInvalidAmountRange},
		{"warning after max", func(t *Terms) { t.WarningDays = 4 }, ErrInvalidDeliverySLA},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			terms := validTerms()
			tc.mutate(&terms)
			require.ErrorIs(t, terms.normalized().Validate(), tc.err)
		})
	}
}

func TestRemittanceType_Revise(t *testing.T) {
	rt, err := NewRemittanceType("v1", "USD-CUP", validTerms(), "admin", time.Now())
	require.NoError(t, err)

	terms := validTerms()
	terms.ExchangeRate = decimal.NewFromInt(400)
	next, err := rt.Revise("v2", terms, "admin", time.Now())
	require.NoError(t, err)
	require.Equal(t, 2, next.Version)
	require.Equal(t, "USD-CUP", next.Code)
	require.True(t, next.Active)
	require.False(t, rt.Active)
	require.Equal(t, "320", rt.Terms.ExchangeRate.String())

	require.ErrorIs(t, rt.Deactivate(), ErrAlreadyInactive)
}

func TestTerms_AcceptsAmountInclusive(t *testing.T) {
	terms := validTerms()
	require.True(t, terms.AcceptsAmount(decimal.NewFromInt(10)))
	require.True(t, terms.AcceptsAmount(decimal.NewFromInt(1000)))
	require.False(t, terms.AcceptsAmount(decimal.RequireFromString("9.99")))
	require.False(t, terms.AcceptsAmount(decimal.RequireFromString("1000.01")))
}
