package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FeeService computes the transfer fee. Amount bounds are validated by the
// caller before this runs.
type FeeService struct {
	homeCurrency     string
	baseFee          decimal.Decimal
	percentageFee    decimal.Decimal
	foreignSurcharge decimal.Decimal
	maxFee           decimal.Decimal
}

func NewFeeService(
	homeCurrency string,
	baseFee decimal.Decimal,
	percentageFee decimal.Decimal,
	foreignSurcharge decimal.Decimal,
	maxFee decimal.Decimal,
) *FeeService {
	return &FeeService{
		homeCurrency:     strings.ToUpper(strings.TrimSpace(homeCurrency)),
		baseFee:          baseFee,
		percentageFee:    percentageFee,
		foreignSurcharge: foreignSurcharge,
		maxFee:           maxFee,
	}
}

// Calculate returns baseFee + amount*percentageFee, plus a flat surcharge for
// non-home currencies, clamped to maxFee and rounded to 2 decimal places.
func (s *FeeService) Calculate(amount decimal.Decimal, currency string) decimal.Decimal {
	fee := s.baseFee.Add(amount.Mul(s.percentageFee))

	if !strings.EqualFold(strings.TrimSpace(currency), s.homeCurrency) {
		fee = fee.Add(s.foreignSurcharge)
	}

	if fee.GreaterThan(s.maxFee) {
		fee = s.maxFee
	}
	if fee.IsNegative() {
		fee = decimal.Zero
	}

	return fee.Round(2)
}
