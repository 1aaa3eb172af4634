package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/transfer-ledger/src/internal/domain"
	"github.com/api-sage/transfer-ledger/src/internal/logger"
)

const transferSelectColumns = `
SELECT id,
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
       created_at,
       completed_at,
       failure_reason`

type TransferRepository struct {
	db *sql.DB
}

func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

func (r *TransferRepository) GetByID(ctx context.Context, id string) (domain.Transfer, error) {
	const query = transferSelectColumns + `
FROM transfers
WHERE id = $1`

	transfer, err := scanTransfer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transfer{}, domain.ErrTransferNotFound
		}
		logger.Error("transfer repository get failed", err, logger.Fields{
			"transferId": id,
		})
		return domain.Transfer{}, fmt.Errorf("get transfer: %w", err)
	}

	return transfer, nil
}

func (r *TransferRepository) GetByReference(ctx context.Context, reference string) (domain.Transfer, error) {
	const query = transferSelectColumns + `
FROM transfers
WHERE reference = $1`

	transfer, err := scanTransfer(r.db.QueryRowContext(ctx, query, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transfer{}, domain.ErrTransferNotFound
		}
		logger.Error("transfer repository get by reference failed", err, logger.Fields{
			"reference": reference,
		})
		return domain.Transfer{}, fmt.Errorf("get transfer by reference: %w", err)
	}

	return transfer, nil
}

func (r *TransferRepository) ListByOwner(ctx context.Context, ownerID string, filter domain.TransferListFilter) (domain.TransferPage, error) {
	const countQuery = `
SELECT COUNT(1)
FROM transfers t
JOIN accounts a ON a.id = t.account_id
WHERE a.owner_id = $1
  AND ($2::text IS NULL OR t.status = $2)`

	const listQuery = `
SELECT t.id,
       t.account_id,
       t.amount,
       t.fee,
       t.total_amount,
       t.currency,
       t.status,
       t.compliance_status,
       t.reference,
       t.recipient_name,
       t.recipient_bank_name,
       t.recipient_bank_code,
       t.recipient_account_number,
       t.recipient_address,
       t.purpose_code,
       t.estimated_arrival,
       t.created_at,
       t.completed_at,
       t.failure_reason
FROM transfers t
JOIN accounts a ON a.id = t.account_id
WHERE a.owner_id = $1
  AND ($2::text IS NULL OR t.status = $2)
ORDER BY t.created_at DESC
LIMIT $3 OFFSET $4`

	var status *string
	if filter.Status != nil {
		value := string(*filter.Status)
		status = &value
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, ownerID, status).Scan(&total); err != nil {
		return domain.TransferPage{}, fmt.Errorf("count transfers: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	rows, err := r.db.QueryContext(ctx, listQuery, ownerID, status, filter.Limit, offset)
	if err != nil {
		return domain.TransferPage{}, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Transfer, 0, filter.Limit)
	for rows.Next() {
		transfer, scanErr := scanTransfer(rows)
		if scanErr != nil {
			return domain.TransferPage{}, fmt.Errorf("scan transfer row: %w", scanErr)
		}
		items = append(items, transfer)
	}
	if err := rows.Err(); err != nil {
		return domain.TransferPage{}, fmt.Errorf("iterate transfer rows: %w", err)
	}

	pages := total / int64(filter.Limit)
	if total%int64(filter.Limit) != 0 {
		pages++
	}

	return domain.TransferPage{
		Items: items,
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
		Pages: pages,
	}, nil
}

func (r *TransferRepository) StatsForOwner(ctx context.Context, ownerID string, now time.Time) (domain.OwnerStats, error) {
	const query = `
SELECT COUNT(1) FILTER (WHERE t.status IN ('PENDING', 'COMPLETED') AND t.created_at >= $2 AND t.created_at < $3),
       COALESCE(SUM(t.amount) FILTER (WHERE t.status IN ('PENDING', 'COMPLETED') AND t.created_at >= $2 AND t.created_at < $3), 0),
       COUNT(1) FILTER (WHERE t.status IN ('PENDING', 'COMPLETED') AND t.created_at >= $4 AND t.created_at < $5),
       COALESCE(SUM(t.amount) FILTER (WHERE t.status IN ('PENDING', 'COMPLETED') AND t.created_at >= $4 AND t.created_at < $5), 0),
       COUNT(1) FILTER (WHERE t.status = 'COMPLETED')
FROM transfers t
JOIN accounts a ON a.id = t.account_id
WHERE a.owner_id = $1`

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)

	var stats domain.OwnerStats
	if err := r.db.QueryRowContext(ctx, query, ownerID, dayStart, dayEnd, monthStart, monthEnd).Scan(
		&stats.TodayCount,
		&stats.TodayAmount,
		&stats.MonthCount,
		&stats.MonthAmount,
		&stats.CompletedCount,
	); err != nil {
		return domain.OwnerStats{}, fmt.Errorf("owner transfer stats: %w", err)
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (domain.Transfer, error) {
	var (
		transfer         domain.Transfer
		recipientAddress sql.NullString
		purposeCode      sql.NullString
		completedAt      sql.NullTime
		failureReason    sql.NullString
	)

	if err := row.Scan(
		&transfer.ID,
		&transfer.AccountID,
		&transfer.Amount,
		&transfer.Fee,
		&transfer.TotalAmount,
		&transfer.Currency,
		&transfer.Status,
		&transfer.ComplianceStatus,
		&transfer.Reference,
		&transfer.Recipient.Name,
		&transfer.Recipient.BankName,
		&transfer.Recipient.BankCode,
		&transfer.Recipient.AccountNumber,
		&recipientAddress,
		&purposeCode,
		&transfer.EstimatedArrival,
		&transfer.CreatedAt,
		&completedAt,
		&failureReason,
	); err != nil {
		return domain.Transfer{}, err
	}

	if recipientAddress.Valid {
		value := recipientAddress.String
		transfer.Recipient.Address = &value
	}
	if purposeCode.Valid {
		value := purposeCode.String
		transfer.PurposeCode = &value
	}
	if completedAt.Valid {
		value := completedAt.Time
		transfer.CompletedAt = &value
	}
	if failureReason.Valid {
		value := failureReason.String
		transfer.FailureReason = &value
	}

	return transfer, nil
}

func marshalAuditDetail(detail domain.AuditDetail) ([]byte, error) {
	raw, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("marshal audit detail: %w", err)
	}
	return raw, nil
}
