package service_interfaces

import "time"

// ReferenceGenerator produces externally visible transfer references. It is
// only probabilistically unique; the UNIQUE constraint on transfers.reference
// is the real guarantee, and the ledger retries on collision.
type ReferenceGenerator interface {
	Generate(now time.Time) string
}
