package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
	AccountStatusFrozen   AccountStatus = "FROZEN"
)

// Account balance is only ever mutated through the ledger's unit of work;
// nothing outside that scope may read-then-write it.
type Account struct {
	ID        string
	OwnerID   string
	Balance   decimal.Decimal
	Status    AccountStatus
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
