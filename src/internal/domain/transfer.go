package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusCompleted TransferStatus = "COMPLETED"
	TransferStatusCancelled TransferStatus = "CANCELLED"
	TransferStatusFailed    TransferStatus = "FAILED"
)

// IsFinal reports whether no further status transition is legal.
func (s TransferStatus) IsFinal() bool {
	return s == TransferStatusCompleted || s == TransferStatusCancelled || s == TransferStatusFailed
}

type ComplianceStatus string

const (
	ComplianceStatusPending  ComplianceStatus = "PENDING"
	ComplianceStatusApproved ComplianceStatus = "APPROVED"
	ComplianceStatusRejected ComplianceStatus = "REJECTED"
)

// Recipient is opaque to the ledger; it is stored and echoed back, never
// interpreted.
type Recipient struct {
	Name          string
	BankName      string
	BankCode      string
	AccountNumber string
	Address       *string
}

type Transfer struct {
	ID               string
	AccountID        string
	Amount           decimal.Decimal
	Fee              decimal.Decimal
	TotalAmount      decimal.Decimal
	Currency         string
	Status           TransferStatus
	ComplianceStatus ComplianceStatus
	Reference        string
	Recipient        Recipient
	PurposeCode      *string
	EstimatedArrival time.Time
	CreatedAt        time.Time
	CompletedAt      *time.Time
	FailureReason    *string
}
