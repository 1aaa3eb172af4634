package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TransferListFilter struct {
	Status *TransferStatus
	Page   int
	Limit  int
}

type TransferPage struct {
	Items []Transfer
	Page  int
	Limit int
	Total int64
	Pages int64
}

// OwnerStats aggregates PENDING and COMPLETED transfers for the current day
// and calendar month, plus the lifetime COMPLETED count.
type OwnerStats struct {
	TodayCount     int64
	TodayAmount    decimal.Decimal
	MonthCount     int64
	MonthAmount    decimal.Decimal
	CompletedCount int64
}

type TransferRepository interface {
	GetByID(ctx context.Context, id string) (Transfer, error)
	GetByReference(ctx context.Context, reference string) (Transfer, error)
	ListByOwner(ctx context.Context, ownerID string, filter TransferListFilter) (TransferPage, error)
	StatsForOwner(ctx context.Context, ownerID string, now time.Time) (OwnerStats, error)
}
