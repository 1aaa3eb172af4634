package services

import (
	"strings"
	"time"
)

// ArrivalService estimates the earliest settlement date for a transfer.
type ArrivalService struct {
	homeCurrency      string
	domesticDays      int
	internationalDays int
}

func NewArrivalService(homeCurrency string, domesticDays, internationalDays int) *ArrivalService {
	return &ArrivalService{
		homeCurrency:      strings.ToUpper(strings.TrimSpace(homeCurrency)),
		domesticDays:      domesticDays,
		internationalDays: internationalDays,
	}
}

// Estimate walks forward one calendar day at a time, counting Monday-Friday
// only, until the required number of business days has passed. The result is
// never a Saturday or Sunday.
func (s *ArrivalService) Estimate(from time.Time, currency string) time.Time {
	required := s.internationalDays
	if strings.EqualFold(strings.TrimSpace(currency), s.homeCurrency) {
		required = s.domesticDays
	}
	if required < 1 {
		required = 1
	}

	date := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	remaining := required
	for remaining > 0 {
		date = date.AddDate(0, 0, 1)
		if isBusinessDay(date) {
			remaining--
		}
	}

	return date
}

func isBusinessDay(date time.Time) bool {
	weekday := date.Weekday()
	return weekday != time.Saturday && weekday != time.Sunday
}
