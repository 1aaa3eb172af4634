package domain

import "errors"

// Business rejections are returned to the caller as-is and must not be
// retried. ErrReferenceGeneration and ErrInternal are transient and safe to
// retry.
var (
	ErrValidation            = errors.New("validation failed")
	ErrAccountNotFound       = errors.New("account not found")
	ErrComplianceRequired    = errors.New("account owner is not compliance verified")
	ErrInvalidTransactionPIN = errors.New("transaction pin is invalid")
	ErrInsufficientFunds     = errors.New("insufficient funds including fee")
	ErrDailyLimitExceeded    = errors.New("daily transfer limit exceeded")
	ErrReferenceGeneration   = errors.New("could not generate a unique transfer reference")
	ErrTransferNotFound      = errors.New("transfer not found")
	ErrTransferNotPending    = errors.New("transfer is not pending")
	ErrInternal              = errors.New("transfer ledger is temporarily unavailable")
)

// ErrReferenceTaken is internal to the create flow: the storage adapter maps
// a unique-constraint violation on transfers.reference to it so the ledger
// can retry with a fresh reference.
var ErrReferenceTaken = errors.New("transfer reference already exists")
