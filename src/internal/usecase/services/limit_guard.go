package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/api-sage/transfer-ledger/src/internal/domain"
)

// LimitGuard checks an account's same-day committed transfer volume against
// the daily cap. Check must run inside the transaction that holds the account
// row lock; outside that scope two concurrent requests can each see a sum
// under the cap and jointly exceed it.
type LimitGuard struct {
	dailyLimit decimal.Decimal
}

func NewLimitGuard(dailyLimit decimal.Decimal) *LimitGuard {
	return &LimitGuard{dailyLimit: dailyLimit}
}

func (g *LimitGuard) DailyLimit() decimal.Decimal {
	return g.dailyLimit
}

// Check sums transfer amounts (fees excluded) with status PENDING or
// COMPLETED for the account's current day and rejects the proposed amount if
// it would push the total past the daily limit.
func (g *LimitGuard) Check(ctx context.Context, store domain.TxStore, accountID string, proposed decimal.Decimal, now time.Time) error {
	dayStart, dayEnd := DayWindow(now)

	committed, err := store.SumCommittedAmountForDay(ctx, accountID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("sum committed amount: %w", err)
	}

	if committed.Add(proposed).GreaterThan(g.dailyLimit) {
		return domain.ErrDailyLimitExceeded
	}

	return nil
}

// DayWindow returns [startOfDay, endOfDay) for the given instant.
func DayWindow(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}
