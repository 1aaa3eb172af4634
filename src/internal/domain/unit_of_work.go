package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TxStore is the only surface through which account balances, transfer rows
// and audit entries may be mutated. Every method runs inside the transaction
// opened by UnitOfWork.WithinTx; the locked account row is the serialization
// point for all money movement on that account.
type TxStore interface {
	// LockAccount acquires the account row with SELECT ... FOR UPDATE and
	// returns its current state.
	LockAccount(ctx context.Context, accountID string) (Account, error)

	// DebitBalance subtracts amount from the account balance. The update
	// carries a balance-sufficiency guard; a guarded miss surfaces as
	// ErrInsufficientFunds.
	DebitBalance(ctx context.Context, accountID string, amount decimal.Decimal) error

	CreditBalance(ctx context.Context, accountID string, amount decimal.Decimal) error

	// SumCommittedAmountForDay sums transfer amounts (excluding fees) for the
	// account with created_at in [dayStart, dayEnd) and status PENDING or
	// COMPLETED.
	SumCommittedAmountForDay(ctx context.Context, accountID string, dayStart, dayEnd time.Time) (decimal.Decimal, error)

	// InsertTransfer persists a new transfer row. A unique violation on the
	// reference column surfaces as ErrReferenceTaken so the caller can retry
	// with a fresh reference.
	InsertTransfer(ctx context.Context, transfer Transfer) (Transfer, error)

	LockTransfer(ctx context.Context, transferID string) (Transfer, error)

	UpdateTransferStatus(ctx context.Context, transferID string, status TransferStatus, failureReason *string, completedAt *time.Time) error

	AppendAudit(ctx context.Context, entry AuditEntry) error
}

type UnitOfWork interface {
	// WithinTx runs fn inside a single transaction. fn returning an error
	// rolls back every effect; partial state is never observable.
	WithinTx(ctx context.Context, fn func(ctx context.Context, store TxStore) error) error
}
