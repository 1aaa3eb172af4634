package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/api-sage/transfer-ledger/src/internal/domain"
	"github.com/api-sage/transfer-ledger/src/internal/logger"
	"github.com/api-sage/transfer-ledger/src/internal/usecase/service_interfaces"
)

const (
	cancelledByUserReason = "Cancelled by user"
	settlementActorID     = "system:settlement"

	defaultListLimit = 20
	maxListLimit     = 100
)

// TransferService is the funds-transfer ledger: it turns a transfer request
// into one atomic state change across the account balance, the transfer row
// and the audit trail.
type TransferService struct {
	uow              domain.UnitOfWork
	accountRepo      domain.AccountRepository
	transferRepo     domain.TransferRepository
	complianceGate   domain.ComplianceGate
	credentialStore  domain.CredentialStore
	clock            domain.Clock
	feeCalculator    service_interfaces.FeeCalculator
	arrivalEstimator service_interfaces.ArrivalEstimator
	referenceGen     service_interfaces.ReferenceGenerator
	limitGuard       *LimitGuard

	minAmount            decimal.Decimal
	maxAmount            decimal.Decimal
	referenceMaxAttempts int
}

func NewTransferService(
	uow domain.UnitOfWork,
	accountRepo domain.AccountRepository,
	transferRepo domain.TransferRepository,
	complianceGate domain.ComplianceGate,
	credentialStore domain.CredentialStore,
	clock domain.Clock,
	feeCalculator service_interfaces.FeeCalculator,
	arrivalEstimator service_interfaces.ArrivalEstimator,
	referenceGen service_interfaces.ReferenceGenerator,
	limitGuard *LimitGuard,
	minAmount decimal.Decimal,
	maxAmount decimal.Decimal,
	referenceMaxAttempts int,
) *TransferService {
	if referenceMaxAttempts < 1 {
		referenceMaxAttempts = 1
	}
	return &TransferService{
		uow:                  uow,
		accountRepo:          accountRepo,
		transferRepo:         transferRepo,
		complianceGate:       complianceGate,
		credentialStore:      credentialStore,
		clock:                clock,
		feeCalculator:        feeCalculator,
		arrivalEstimator:     arrivalEstimator,
		referenceGen:         referenceGen,
		limitGuard:           limitGuard,
		minAmount:            minAmount,
		maxAmount:            maxAmount,
		referenceMaxAttempts: referenceMaxAttempts,
	}
}

// Create validates the request, computes fee and arrival, and commits the
// balance debit, the PENDING transfer row and the audit entry as one unit of
// work under the account row lock.
func (s *TransferService) Create(ctx context.Context, callerID, accountID string, req service_interfaces.TransferRequest) (domain.Transfer, error) {
	logger.Info("transfer service create request", logger.Fields{
		"callerId":  callerID,
		"accountId": accountID,
		"payload":   logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return domain.Transfer{}, fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}

	amount := req.Amount.Round(2)
	if amount.LessThan(s.minAmount) || amount.GreaterThan(s.maxAmount) {
		return domain.Transfer{}, fmt.Errorf("%w: amount must be between %s and %s",
			domain.ErrValidation, s.minAmount.StringFixed(2), s.maxAmount.StringFixed(2))
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.Transfer{}, domain.ErrAccountNotFound
		}
		return domain.Transfer{}, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	if account.OwnerID != callerID || account.Status != domain.AccountStatusActive {
		return domain.Transfer{}, domain.ErrAccountNotFound
	}

	if err := s.verifyTransactionPIN(ctx, account.OwnerID, req.TransactionPIN); err != nil {
		return domain.Transfer{}, err
	}

	verified, err := s.complianceGate.IsVerified(ctx, account.OwnerID)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	if !verified {
		return domain.Transfer{}, domain.ErrComplianceRequired
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	fee := s.feeCalculator.Calculate(amount, currency)
	totalAmount := amount.Add(fee)
	now := s.clock.Now()

	var created domain.Transfer
	for attempt := 0; attempt < s.referenceMaxAttempts; attempt++ {
		reference := s.referenceGen.Generate(now)

		err = s.uow.WithinTx(ctx, func(ctx context.Context, store domain.TxStore) error {
			locked, lockErr := store.LockAccount(ctx, accountID)
			if lockErr != nil {
				return lockErr
			}
			if locked.Status != domain.AccountStatusActive {
				return domain.ErrAccountNotFound
			}
			if locked.Balance.LessThan(totalAmount) {
				return domain.ErrInsufficientFunds
			}

			if guardErr := s.limitGuard.Check(ctx, store, accountID, amount, now); guardErr != nil {
				return guardErr
			}

			if debitErr := store.DebitBalance(ctx, accountID, totalAmount); debitErr != nil {
				return debitErr
			}

			transfer := domain.Transfer{
				AccountID:        accountID,
				Amount:           amount,
				Fee:              fee,
				TotalAmount:      totalAmount,
				Currency:         currency,
				Status:           domain.TransferStatusPending,
				ComplianceStatus: domain.ComplianceStatusPending,
				Reference:        reference,
				Recipient: domain.Recipient{
					Name:          strings.TrimSpace(req.RecipientName),
					BankName:      strings.TrimSpace(req.RecipientBankName),
					BankCode:      strings.TrimSpace(req.RecipientBankCode),
					AccountNumber: strings.TrimSpace(req.RecipientAccountNumber),
					Address:       optionalString(req.RecipientAddress),
				},
				PurposeCode:      optionalString(req.PurposeCode),
				EstimatedArrival: s.arrivalEstimator.Estimate(now, currency),
				CreatedAt:        now,
			}

			inserted, insertErr := store.InsertTransfer(ctx, transfer)
			if insertErr != nil {
				return insertErr
			}
			created = inserted

			return store.AppendAudit(ctx, domain.AuditEntry{
				ID:        uuid.NewString(),
				ActorID:   callerID,
				Action:    domain.AuditActionTransferCreated,
				SubjectID: inserted.ID,
				Detail: domain.AuditDetail{
					Amount:           amount,
					Fee:              fee,
					TotalAmount:      totalAmount,
					Currency:         currency,
					Reference:        reference,
					RecipientSummary: recipientSummary(inserted.Recipient),
				},
				CreatedAt: now,
			})
		})

		if err == nil {
			logger.Info("transfer service create success", logger.Fields{
				"transferId": created.ID,
				"reference":  created.Reference,
				"fee":        fee,
				"total":      totalAmount,
			})
			return created, nil
		}
		if errors.Is(err, domain.ErrReferenceTaken) {
			logger.Warn("transfer service reference collision, regenerating", logger.Fields{
				"accountId": accountID,
				"attempt":   attempt + 1,
			})
			continue
		}
		return domain.Transfer{}, s.classifyTxError(err, "create", accountID)
	}

	logger.Error("transfer service reference attempts exhausted", err, logger.Fields{
		"accountId": accountID,
		"attempts":  s.referenceMaxAttempts,
	})
	return domain.Transfer{}, domain.ErrReferenceGeneration
}

// Cancel refunds a PENDING transfer and marks it CANCELLED in one unit of
// work. A transfer that is already COMPLETED, CANCELLED or FAILED is rejected
// with ErrTransferNotPending, which makes caller retries safe.
func (s *TransferService) Cancel(ctx context.Context, callerID, transferID string) (domain.Transfer, error) {
	logger.Info("transfer service cancel request", logger.Fields{
		"callerId":   callerID,
		"transferId": transferID,
	})

	transfer, err := s.ownedTransferByID(ctx, callerID, transferID)
	if err != nil {
		return domain.Transfer{}, err
	}

	now := s.clock.Now()
	reason := cancelledByUserReason

	err = s.uow.WithinTx(ctx, func(ctx context.Context, store domain.TxStore) error {
		locked, lockErr := store.LockTransfer(ctx, transfer.ID)
		if lockErr != nil {
			return lockErr
		}
		if locked.Status != domain.TransferStatusPending {
			return domain.ErrTransferNotPending
		}

		if creditErr := store.CreditBalance(ctx, locked.AccountID, locked.TotalAmount); creditErr != nil {
			return creditErr
		}

		if updateErr := store.UpdateTransferStatus(ctx, locked.ID, domain.TransferStatusCancelled, &reason, nil); updateErr != nil {
			return updateErr
		}

		return store.AppendAudit(ctx, domain.AuditEntry{
			ID:        uuid.NewString(),
			ActorID:   callerID,
			Action:    domain.AuditActionTransferCancelled,
			SubjectID: locked.ID,
			Detail: domain.AuditDetail{
				Amount:           locked.Amount,
				Fee:              locked.Fee,
				TotalAmount:      locked.TotalAmount,
				Currency:         locked.Currency,
				Reference:        locked.Reference,
				RecipientSummary: recipientSummary(locked.Recipient),
				Reason:           reason,
			},
			CreatedAt: now,
		})
	})
	if err != nil {
		return domain.Transfer{}, s.classifyTxError(err, "cancel", transfer.AccountID)
	}

	transfer.Status = domain.TransferStatusCancelled
	transfer.FailureReason = &reason

	logger.Info("transfer service cancel success", logger.Fields{
		"transferId": transfer.ID,
		"reference":  transfer.Reference,
	})
	return transfer, nil
}

// List returns the caller's transfers ordered by creation time descending.
func (s *TransferService) List(ctx context.Context, callerID string, req service_interfaces.ListTransfersRequest) (domain.TransferPage, error) {
	filter := domain.TransferListFilter{
		Page:  req.Page,
		Limit: req.Limit,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	if trimmed := strings.TrimSpace(req.Status); trimmed != "" {
		status := domain.TransferStatus(strings.ToUpper(trimmed))
		switch status {
		case domain.TransferStatusPending, domain.TransferStatusCompleted,
			domain.TransferStatusCancelled, domain.TransferStatusFailed:
			filter.Status = &status
		default:
			return domain.TransferPage{}, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, trimmed)
		}
	}

	page, err := s.transferRepo.ListByOwner(ctx, callerID, filter)
	if err != nil {
		logger.Error("transfer service list failed", err, logger.Fields{
			"callerId": callerID,
		})
		return domain.TransferPage{}, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	return page, nil
}

// Stats aggregates the caller's PENDING and COMPLETED transfers for the
// current day and calendar month, plus the remaining daily-limit headroom.
func (s *TransferService) Stats(ctx context.Context, callerID string) (service_interfaces.TransferStats, error) {
	now := s.clock.Now()

	stats, err := s.transferRepo.StatsForOwner(ctx, callerID, now)
	if err != nil {
		logger.Error("transfer service stats failed", err, logger.Fields{
			"callerId": callerID,
		})
		return service_interfaces.TransferStats{}, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	remaining := s.limitGuard.DailyLimit().Sub(stats.TodayAmount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return service_interfaces.TransferStats{
		Today: service_interfaces.TodayStats{
			Count:          stats.TodayCount,
			Amount:         stats.TodayAmount,
			RemainingLimit: remaining,
		},
		ThisMonth: service_interfaces.PeriodStats{
			Count:  stats.MonthCount,
			Amount: stats.MonthAmount,
		},
		Total: service_interfaces.TotalStats{
			Count: stats.CompletedCount,
		},
	}, nil
}

// ConfirmSettlement moves a PENDING transfer to COMPLETED on external
// settlement confirmation. The reserved funds stay debited; the balance is
// never touched again for a COMPLETED transfer.
func (s *TransferService) ConfirmSettlement(ctx context.Context, reference string) (domain.Transfer, error) {
	return s.settle(ctx, reference, domain.TransferStatusCompleted, "")
}

// FailSettlement moves a PENDING transfer to FAILED and returns the reserved
// funds to the account.
func (s *TransferService) FailSettlement(ctx context.Context, reference, reason string) (domain.Transfer, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "Settlement failed"
	}
	return s.settle(ctx, reference, domain.TransferStatusFailed, reason)
}

func (s *TransferService) settle(ctx context.Context, reference string, target domain.TransferStatus, reason string) (domain.Transfer, error) {
	logger.Info("transfer service settlement event", logger.Fields{
		"reference": reference,
		"target":    target,
	})

	transfer, err := s.transferRepo.GetByReference(ctx, strings.TrimSpace(reference))
	if err != nil {
		if errors.Is(err, domain.ErrTransferNotFound) {
			return domain.Transfer{}, domain.ErrTransferNotFound
		}
		return domain.Transfer{}, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	now := s.clock.Now()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, store domain.TxStore) error {
		locked, lockErr := store.LockTransfer(ctx, transfer.ID)
		if lockErr != nil {
			return lockErr
		}
		if locked.Status != domain.TransferStatusPending {
			return domain.ErrTransferNotPending
		}

		detail := domain.AuditDetail{
			Amount:           locked.Amount,
			Fee:              locked.Fee,
			TotalAmount:      locked.TotalAmount,
			Currency:         locked.Currency,
			Reference:        locked.Reference,
			RecipientSummary: recipientSummary(locked.Recipient),
		}

		switch target {
		case domain.TransferStatusCompleted:
			if updateErr := store.UpdateTransferStatus(ctx, locked.ID, domain.TransferStatusCompleted, nil, &now); updateErr != nil {
				return updateErr
			}
			return store.AppendAudit(ctx, domain.AuditEntry{
				ID:        uuid.NewString(),
				ActorID:   settlementActorID,
				Action:    domain.AuditActionTransferCompleted,
				SubjectID: locked.ID,
				Detail:    detail,
				CreatedAt: now,
			})
		case domain.TransferStatusFailed:
			if creditErr := store.CreditBalance(ctx, locked.AccountID, locked.TotalAmount); creditErr != nil {
				return creditErr
			}
			if updateErr := store.UpdateTransferStatus(ctx, locked.ID, domain.TransferStatusFailed, &reason, nil); updateErr != nil {
				return updateErr
			}
			detail.Reason = reason
			return store.AppendAudit(ctx, domain.AuditEntry{
				ID:        uuid.NewString(),
				ActorID:   settlementActorID,
				Action:    domain.AuditActionTransferFailed,
				SubjectID: locked.ID,
				Detail:    detail,
				CreatedAt: now,
			})
		default:
			return fmt.Errorf("illegal settlement target %q", target)
		}
	})
	if err != nil {
		return domain.Transfer{}, s.classifyTxError(err, "settle", transfer.AccountID)
	}

	transfer.Status = target
	if target == domain.TransferStatusCompleted {
		transfer.CompletedAt = &now
	} else {
		transfer.FailureReason = &reason
	}

	logger.Info("transfer service settlement applied", logger.Fields{
		"transferId": transfer.ID,
		"reference":  transfer.Reference,
		"status":     transfer.Status,
	})
	return transfer, nil
}

func (s *TransferService) verifyTransactionPIN(ctx context.Context, ownerID, pin string) error {
	hash, err := s.credentialStore.TransactionPINHash(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(pin))) != nil {
		logger.Warn("transfer service transaction pin mismatch", logger.Fields{
			"ownerId": ownerID,
		})
		return domain.ErrInvalidTransactionPIN
	}

	return nil
}

func (s *TransferService) ownedTransferByID(ctx context.Context, callerID, transferID string) (domain.Transfer, error) {
	transfer, err := s.transferRepo.GetByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, domain.ErrTransferNotFound) {
			return domain.Transfer{}, domain.ErrTransferNotFound
		}
		return domain.Transfer{}, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	account, err := s.accountRepo.GetByID(ctx, transfer.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.Transfer{}, domain.ErrTransferNotFound
		}
		return domain.Transfer{}, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	if account.OwnerID != callerID {
		return domain.Transfer{}, domain.ErrTransferNotFound
	}

	return transfer, nil
}

// classifyTxError keeps business rejections intact and folds everything else
// into the retryable ErrInternal.
func (s *TransferService) classifyTxError(err error, operation, accountID string) error {
	for _, sentinel := range []error{
		domain.ErrAccountNotFound,
		domain.ErrInsufficientFunds,
		domain.ErrDailyLimitExceeded,
		domain.ErrTransferNotFound,
		domain.ErrTransferNotPending,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	logger.Error("transfer service unit of work failed", err, logger.Fields{
		"operation": operation,
		"accountId": accountID,
	})
	return fmt.Errorf("%w: %v", domain.ErrInternal, err)
}

func recipientSummary(r domain.Recipient) string {
	masked := r.AccountNumber
	if len(masked) > 4 {
		masked = strings.Repeat("*", len(masked)-4) + masked[len(masked)-4:]
	}
	return fmt.Sprintf("%s / %s / %s", r.Name, r.BankName, masked)
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
