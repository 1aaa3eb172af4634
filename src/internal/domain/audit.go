package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AuditActionTransferCreated   = "TRANSFER_CREATED"
	AuditActionTransferCancelled = "TRANSFER_CANCELLED"
	AuditActionTransferCompleted = "TRANSFER_COMPLETED"
	AuditActionTransferFailed    = "TRANSFER_FAILED"
)

// AuditDetail keeps the audit trail machine-checkable: named fields instead of
// a free-form blob.
type AuditDetail struct {
	Amount           decimal.Decimal `json:"amount"`
	Fee              decimal.Decimal `json:"fee"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Currency         string          `json:"currency"`
	Reference        string          `json:"reference"`
	RecipientSummary string          `json:"recipientSummary"`
	Reason           string          `json:"reason,omitempty"`
}

// AuditEntry rows are append-only; they are written inside the same commit as
// the balance and transfer mutation they describe.
type AuditEntry struct {
	ID        string
	ActorID   string
	Action    string
	SubjectID string
	Detail    AuditDetail
	CreatedAt time.Time
}
