package platform

import "time"

// SystemClock is the production Clock; tests substitute a fixed one.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
