package service_interfaces

import "github.com/shopspring/decimal"

// FeeCalculator is pure: same (amount, currency) in, same fee out, no I/O.
type FeeCalculator interface {
	Calculate(amount decimal.Decimal, currency string) decimal.Decimal
}
