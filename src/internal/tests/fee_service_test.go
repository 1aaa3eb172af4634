package services_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/api-sage/transfer-ledger/src/internal/usecase/services"
)

func newFeeService() *services.FeeService {
	return services.NewFeeService(
		"USD",
		decimal.NewFromInt(25),
		decimal.NewFromFloat(0.001),
		decimal.NewFromInt(20),
		decimal.NewFromInt(100),
	)
}

func TestFeeServiceHomeCurrency(t *testing.T) {
	svc := newFeeService()

	fee := svc.Calculate(decimal.NewFromInt(1000), "USD")
	if !fee.Equal(decimal.NewFromInt(26)) {
		t.Fatalf("expected fee 26, got %s", fee.String())
	}
}

func TestFeeServiceForeignSurcharge(t *testing.T) {
	svc := newFeeService()

	fee := svc.Calculate(decimal.NewFromInt(5000), "EUR")
	if !fee.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected fee 50, got %s", fee.String())
	}
}

func TestFeeServiceClampedToMax(t *testing.T) {
	svc := newFeeService()

	fee := svc.Calculate(decimal.NewFromInt(500000), "USD")
	if !fee.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected fee clamped to 100, got %s", fee.String())
	}
}

func TestFeeServiceDeterministicAndTwoDecimalPlaces(t *testing.T) {
	svc := newFeeService()
	amount := decimal.NewFromFloat(1234.56)

	first := svc.Calculate(amount, "EUR")
	second := svc.Calculate(amount, "EUR")
	if !first.Equal(second) {
		t.Fatalf("fee is not deterministic: %s vs %s", first.String(), second.String())
	}
	if first.Exponent() < -2 {
		t.Fatalf("fee has more than 2 decimal places: %s", first.String())
	}
	if first.IsNegative() {
		t.Fatalf("fee is negative: %s", first.String())
	}
}

func TestFeeServiceNeverNegative(t *testing.T) {
	svc := services.NewFeeService(
		"USD",
		decimal.NewFromInt(-50),
		decimal.Zero,
		decimal.Zero,
		decimal.NewFromInt(100),
	)

	fee := svc.Calculate(decimal.NewFromInt(100), "USD")
	if fee.IsNegative() {
		t.Fatalf("expected non-negative fee, got %s", fee.String())
	}
}
