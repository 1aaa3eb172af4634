package service_interfaces

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/api-sage/transfer-ledger/src/internal/domain"
)

type TransferRequest struct {
	Amount                 decimal.Decimal `json:"amount"`
	Currency               string          `json:"currency"`
	TransactionPIN         string          `json:"transactionPIN"`
	RecipientName          string          `json:"recipientName"`
	RecipientBankName      string          `json:"recipientBankName"`
	RecipientBankCode      string          `json:"recipientBankCode"`
	RecipientAccountNumber string          `json:"recipientAccountNumber"`
	RecipientAddress       string          `json:"recipientAddress,omitempty"`
	PurposeCode            string          `json:"purposeCode,omitempty"`
}

// Validate covers shape only; amount bounds are checked by the ledger against
// its configured limits.
func (r TransferRequest) Validate() error {
	var errs []string

	if r.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	}

	currency := strings.ToUpper(strings.TrimSpace(r.Currency))
	if len(currency) != 3 {
		errs = append(errs, "currency must be 3 characters")
	}

	if strings.TrimSpace(r.TransactionPIN) == "" {
		errs = append(errs, "transactionPIN is required")
	}
	if strings.TrimSpace(r.RecipientName) == "" {
		errs = append(errs, "recipientName is required")
	}
	if strings.TrimSpace(r.RecipientBankName) == "" {
		errs = append(errs, "recipientBankName is required")
	}
	if strings.TrimSpace(r.RecipientBankCode) == "" {
		errs = append(errs, "recipientBankCode is required")
	}
	if strings.TrimSpace(r.RecipientAccountNumber) == "" {
		errs = append(errs, "recipientAccountNumber is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type ListTransfersRequest struct {
	Page   int
	Limit  int
	Status string
}

type PeriodStats struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type TodayStats struct {
	Count          int64           `json:"count"`
	Amount         decimal.Decimal `json:"amount"`
	RemainingLimit decimal.Decimal `json:"remainingLimit"`
}

type TotalStats struct {
	Count int64 `json:"count"`
}

type TransferStats struct {
	Today     TodayStats  `json:"today"`
	ThisMonth PeriodStats `json:"thisMonth"`
	Total     TotalStats  `json:"total"`
}

type TransferService interface {
	Create(ctx context.Context, callerID, accountID string, req TransferRequest) (domain.Transfer, error)
	Cancel(ctx context.Context, callerID, transferID string) (domain.Transfer, error)
	List(ctx context.Context, callerID string, req ListTransfersRequest) (domain.TransferPage, error)
	Stats(ctx context.Context, callerID string) (TransferStats, error)

	// Settlement entry points, driven by the external settlement event stream.
	ConfirmSettlement(ctx context.Context, reference string) (domain.Transfer, error)
	FailSettlement(ctx context.Context, reference, reason string) (domain.Transfer, error)
}
