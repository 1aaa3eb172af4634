package service_interfaces

import "time"

// ArrivalEstimator returns the earliest settlement date for a transfer,
// never on a Saturday or Sunday.
type ArrivalEstimator interface {
	Estimate(from time.Time, currency string) time.Time
}
