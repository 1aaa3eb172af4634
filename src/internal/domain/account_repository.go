package domain

import "context"

// AccountRepository is the read side used for precondition checks. Every
// balance read that feeds a financial decision happens again inside the unit
// of work, under the account row lock.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (Account, error)
}
