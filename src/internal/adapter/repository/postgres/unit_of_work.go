package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/api-sage/transfer-ledger/src/internal/domain"
	"github.com/api-sage/transfer-ledger/src/internal/logger"
)

// UnitOfWork runs ledger mutations inside one Postgres transaction. The
// SELECT ... FOR UPDATE on the account row in LockAccount is the
// serialization point: concurrent creates and cancels on the same account
// queue behind it, so the limit check, the balance debit and the transfer
// insert can never interleave.
type UnitOfWork struct {
	db *sql.DB
}

func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, store domain.TxStore) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("unit of work begin tx failed", err, nil)
		return fmt.Errorf("begin ledger transaction: %w", err)
	}

	if err := fn(ctx, &txStore{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("unit of work commit failed", err, nil)
		return fmt.Errorf("commit ledger transaction: %w", err)
	}

	return nil
}

type txStore struct {
	tx *sql.Tx
}

func (s *txStore) LockAccount(ctx context.Context, accountID string) (domain.Account, error) {
	const query = `
SELECT id, owner_id, balance, status, currency, created_at, updated_at
FROM accounts
WHERE id = $1
FOR UPDATE`

	var account domain.Account
	if err := s.tx.QueryRowContext(ctx, query, accountID).Scan(
		&account.ID,
		&account.OwnerID,
		&account.Balance,
		&account.Status,
		&account.Currency,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lock account: %w", err)
	}

	return account, nil
}

func (s *txStore) DebitBalance(ctx context.Context, accountID string, amount decimal.Decimal) error {
	const query = `
UPDATE accounts
SET balance = balance - $2::numeric,
    updated_at = NOW()
WHERE id = $1
  AND balance >= $2::numeric`

	result, err := s.tx.ExecContext(ctx, query, accountID, amount.StringFixed(2))
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit balance rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrInsufficientFunds
	}

	return nil
}

func (s *txStore) CreditBalance(ctx context.Context, accountID string, amount decimal.Decimal) error {
	const query = `
UPDATE accounts
SET balance = balance + $2::numeric,
    updated_at = NOW()
WHERE id = $1`

	result, err := s.tx.ExecContext(ctx, query, accountID, amount.StringFixed(2))
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit balance rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func (s *txStore) SumCommittedAmountForDay(ctx context.Context, accountID string, dayStart, dayEnd time.Time) (decimal.Decimal, error) {
	const query = `
SELECT COALESCE(SUM(amount), 0)
FROM transfers
WHERE account_id = $1
  AND status IN ('PENDING', 'COMPLETED')
  AND created_at >= $2
  AND created_at < $3`

	var sum decimal.Decimal
	if err := s.tx.QueryRowContext(ctx, query, accountID, dayStart, dayEnd).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum committed amount: %w", err)
	}

	return sum, nil
}

func (s *txStore) InsertTransfer(ctx context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	const query = `
INSERT INTO transfers (
	account_id,
	amount,
	fee,
	total_amount,
	currency,
	status,
	compliance_status,
	reference,
	recipient_name,
	recipient_bank_name,
	recipient_bank_code,
	recipient_account_number,
	recipient_address,
	purpose_code,
	estimated_arrival,
	created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
)
RETURNING id`

	if err := s.tx.QueryRowContext(
		ctx,
		query,
		transfer.AccountID,
		transfer.Amount.StringFixed(2),
		transfer.Fee.StringFixed(2),
		transfer.TotalAmount.StringFixed(2),
		transfer.Currency,
		transfer.Status,
		transfer.ComplianceStatus,
		transfer.Reference,
		transfer.Recipient.Name,
		transfer.Recipient.BankName,
		transfer.Recipient.BankCode,
		transfer.Recipient.AccountNumber,
		transfer.Recipient.Address,
		transfer.PurposeCode,
		transfer.EstimatedArrival,
		transfer.CreatedAt,
	).Scan(&transfer.ID); err != nil {
		if isUniqueViolation(err) {
			return domain.Transfer{}, domain.ErrReferenceTaken
		}
		return domain.Transfer{}, fmt.Errorf("insert transfer: %w", err)
	}

	return transfer, nil
}

func (s *txStore) LockTransfer(ctx context.Context, transferID string) (domain.Transfer, error) {
	const query = transferSelectColumns + `
FROM transfers
WHERE id = $1
FOR UPDATE`

	transfer, err := scanTransfer(s.tx.QueryRowContext(ctx, query, transferID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transfer{}, domain.ErrTransferNotFound
		}
		return domain.Transfer{}, fmt.Errorf("lock transfer: %w", err)
	}

	return transfer, nil
}

func (s *txStore) UpdateTransferStatus(ctx context.Context, transferID string, status domain.TransferStatus, failureReason *string, completedAt *time.Time) error {
	const query = `
UPDATE transfers
SET status = $2,
    failure_reason = $3,
    completed_at = $4
WHERE id = $1`

	result, err := s.tx.ExecContext(ctx, query, transferID, status, failureReason, completedAt)
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transfer status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTransferNotFound
	}

	return nil
}

func (s *txStore) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	const query = `
INSERT INTO audit_entries (id, actor_id, action, subject_id, detail, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	detail, err := marshalAuditDetail(entry.Detail)
	if err != nil {
		return err
	}

	if _, err := s.tx.ExecContext(ctx, query, entry.ID, entry.ActorID, entry.Action, entry.SubjectID, detail, entry.CreatedAt); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == "23505"
	}
	return false
}
