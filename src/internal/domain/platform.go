package domain

import (
	"context"
	"time"
)

// Clock is injected so tests can pin "now" for arrival estimation, daily
// windows and monthly stats.
type Clock interface {
	Now() time.Time
}

// ComplianceGate answers whether an account owner has passed external
// verification. Verification itself happens outside this service.
type ComplianceGate interface {
	IsVerified(ctx context.Context, ownerID string) (bool, error)
}

// CredentialStore exposes the owner's transaction PIN hash for bcrypt
// comparison at transfer time.
type CredentialStore interface {
	TransactionPINHash(ctx context.Context, ownerID string) (string, error)
}
