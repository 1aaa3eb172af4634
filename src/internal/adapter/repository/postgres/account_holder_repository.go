package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AccountHolderRepository backs the ComplianceGate and CredentialStore ports
// from the account_holders projection. The verification workflow itself runs
// outside this service; only its outcome is read here.
type AccountHolderRepository struct {
	db *sql.DB
}

func NewAccountHolderRepository(db *sql.DB) *AccountHolderRepository {
	return &AccountHolderRepository{db: db}
}

func (r *AccountHolderRepository) IsVerified(ctx context.Context, ownerID string) (bool, error) {
	const query = `
SELECT compliance_status = 'VERIFIED'
FROM account_holders
WHERE id = $1`

	var verified bool
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&verified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check compliance status: %w", err)
	}

	return verified, nil
}

func (r *AccountHolderRepository) TransactionPINHash(ctx context.Context, ownerID string) (string, error) {
	const query = `
SELECT transaction_pin_hash
FROM account_holders
WHERE id = $1`

	var hash string
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("account holder %q not found", ownerID)
		}
		return "", fmt.Errorf("get transaction pin hash: %w", err)
	}

	return hash, nil
}
