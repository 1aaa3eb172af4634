package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/api-sage/transfer-ledger/src/internal/domain"
	"github.com/api-sage/transfer-ledger/src/internal/usecase/services"
)

// memStore is an in-memory stand-in for the Postgres adapter. WithinTx takes
// a snapshot and restores it when fn fails, which mirrors transactional
// rollback; the mutex held for the whole unit of work mirrors the account
// row lock's serialization.
type memStore struct {
	mu sync.Mutex

	accounts  map[string]domain.Account
	transfers map[string]domain.Transfer
	order     []string
	audits    []domain.AuditEntry

	verified map[string]bool
	pinHash  map[string]string

	failAppendAudit bool
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  make(map[string]domain.Account),
		transfers: make(map[string]domain.Transfer),
		verified:  make(map[string]bool),
		pinHash:   make(map[string]string),
	}
}

type memSnapshot struct {
	accounts  map[string]domain.Account
	transfers map[string]domain.Transfer
	order     []string
	audits    []domain.AuditEntry
}

func (m *memStore) snapshot() memSnapshot {
	accounts := make(map[string]domain.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	transfers := make(map[string]domain.Transfer, len(m.transfers))
	for k, v := range m.transfers {
		transfers[k] = v
	}
	return memSnapshot{
		accounts:  accounts,
		transfers: transfers,
		order:     append([]string(nil), m.order...),
		audits:    append([]domain.AuditEntry(nil), m.audits...),
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.accounts = s.accounts
	m.transfers = s.transfers
	m.order = s.order
	m.audits = s.audits
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store domain.TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := m.snapshot()
	if err := fn(ctx, &memTx{store: m}); err != nil {
		m.restore(saved)
		return err
	}
	return nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) LockAccount(_ context.Context, accountID string) (domain.Account, error) {
	account, ok := t.store.accounts[accountID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

func (t *memTx) DebitBalance(_ context.Context, accountID string, amount decimal.Decimal) error {
	account, ok := t.store.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if account.Balance.LessThan(amount) {
		return domain.ErrInsufficientFunds
	}
	account.Balance = account.Balance.Sub(amount)
	t.store.accounts[accountID] = account
	return nil
}

func (t *memTx) CreditBalance(_ context.Context, accountID string, amount decimal.Decimal) error {
	account, ok := t.store.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.Balance = account.Balance.Add(amount)
	t.store.accounts[accountID] = account
	return nil
}

func (t *memTx) SumCommittedAmountForDay(_ context.Context, accountID string, dayStart, dayEnd time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, transfer := range t.store.transfers {
		if transfer.AccountID != accountID {
			continue
		}
		if transfer.Status != domain.TransferStatusPending && transfer.Status != domain.TransferStatusCompleted {
			continue
		}
		if transfer.CreatedAt.Before(dayStart) || !transfer.CreatedAt.Before(dayEnd) {
			continue
		}
		sum = sum.Add(transfer.Amount)
	}
	return sum, nil
}

func (t *memTx) InsertTransfer(_ context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	for _, existing := range t.store.transfers {
		if existing.Reference == transfer.Reference {
			return domain.Transfer{}, domain.ErrReferenceTaken
		}
	}

	transfer.ID = uuid.NewString()
	t.store.transfers[transfer.ID] = transfer
	t.store.order = append(t.store.order, transfer.ID)
	return transfer, nil
}

func (t *memTx) LockTransfer(_ context.Context, transferID string) (domain.Transfer, error) {
	transfer, ok := t.store.transfers[transferID]
	if !ok {
		return domain.Transfer{}, domain.ErrTransferNotFound
	}
	return transfer, nil
}

func (t *memTx) UpdateTransferStatus(_ context.Context, transferID string, status domain.TransferStatus, failureReason *string, completedAt *time.Time) error {
	transfer, ok := t.store.transfers[transferID]
	if !ok {
		return domain.ErrTransferNotFound
	}
	transfer.Status = status
	transfer.FailureReason = failureReason
	transfer.CompletedAt = completedAt
	t.store.transfers[transferID] = transfer
	return nil
}

func (t *memTx) AppendAudit(_ context.Context, entry domain.AuditEntry) error {
	if t.store.failAppendAudit {
		return errors.New("audit sink unavailable")
	}
	t.store.audits = append(t.store.audits, entry)
	return nil
}

// Read-side ports, split because AccountRepository and TransferRepository
// both name their lookup GetByID.

type fakeAccountRepo struct {
	store *memStore
}

func (f fakeAccountRepo) GetByID(_ context.Context, id string) (domain.Account, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	account, ok := f.store.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

type fakeTransferRepo struct {
	store *memStore
}

func (f fakeTransferRepo) GetByID(_ context.Context, id string) (domain.Transfer, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	transfer, ok := f.store.transfers[id]
	if !ok {
		return domain.Transfer{}, domain.ErrTransferNotFound
	}
	return transfer, nil
}

func (f fakeTransferRepo) GetByReference(ctx context.Context, reference string) (domain.Transfer, error) {
	return f.store.getByReference(ctx, reference)
}

func (f fakeTransferRepo) ListByOwner(ctx context.Context, ownerID string, filter domain.TransferListFilter) (domain.TransferPage, error) {
	return f.store.listByOwner(ctx, ownerID, filter)
}

func (f fakeTransferRepo) StatsForOwner(ctx context.Context, ownerID string, now time.Time) (domain.OwnerStats, error) {
	return f.store.statsForOwner(ctx, ownerID, now)
}

func (m *memStore) getByReference(_ context.Context, reference string) (domain.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, transfer := range m.transfers {
		if transfer.Reference == reference {
			return transfer, nil
		}
	}
	return domain.Transfer{}, domain.ErrTransferNotFound
}

func (m *memStore) listByOwner(_ context.Context, ownerID string, filter domain.TransferListFilter) (domain.TransferPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]domain.Transfer, 0)
	for _, id := range m.order {
		transfer := m.transfers[id]
		account, ok := m.accounts[transfer.AccountID]
		if !ok || account.OwnerID != ownerID {
			continue
		}
		if filter.Status != nil && transfer.Status != *filter.Status {
			continue
		}
		matched = append(matched, transfer)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	pages := total / int64(filter.Limit)
	if total%int64(filter.Limit) != 0 {
		pages++
	}

	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}

	return domain.TransferPage{
		Items: matched[start:end],
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
		Pages: pages,
	}, nil
}

func (m *memStore) statsForOwner(_ context.Context, ownerID string, now time.Time) (domain.OwnerStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dayStart, dayEnd := services.DayWindow(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)

	stats := domain.OwnerStats{
		TodayAmount: decimal.Zero,
		MonthAmount: decimal.Zero,
	}
	for _, transfer := range m.transfers {
		account, ok := m.accounts[transfer.AccountID]
		if !ok || account.OwnerID != ownerID {
			continue
		}
		if transfer.Status == domain.TransferStatusCompleted {
			stats.CompletedCount++
		}
		if transfer.Status != domain.TransferStatusPending && transfer.Status != domain.TransferStatusCompleted {
			continue
		}
		if !transfer.CreatedAt.Before(dayStart) && transfer.CreatedAt.Before(dayEnd) {
			stats.TodayCount++
			stats.TodayAmount = stats.TodayAmount.Add(transfer.Amount)
		}
		if !transfer.CreatedAt.Before(monthStart) && transfer.CreatedAt.Before(monthEnd) {
			stats.MonthCount++
			stats.MonthAmount = stats.MonthAmount.Add(transfer.Amount)
		}
	}

	return stats, nil
}

func (m *memStore) IsVerified(_ context.Context, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verified[ownerID], nil
}

func (m *memStore) TransactionPINHash(_ context.Context, ownerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash, ok := m.pinHash[ownerID]
	if !ok {
		return "", errors.New("account holder not found")
	}
	return hash, nil
}

func (m *memStore) accountBalance(id string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Balance
}

func (m *memStore) auditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.audits)
}

func (m *memStore) lastAudit() domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audits[len(m.audits)-1]
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// queuedReferenceGenerator replays scripted references before delegating to
// the real generator, used to force collisions.
type queuedReferenceGenerator struct {
	mu     sync.Mutex
	queue  []string
	actual *services.TimestampReferenceGenerator
}

func (g *queuedReferenceGenerator) Generate(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.queue) > 0 {
		next := g.queue[0]
		g.queue = g.queue[1:]
		return next
	}
	return g.actual.Generate(now)
}
