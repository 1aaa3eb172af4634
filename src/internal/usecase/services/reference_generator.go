package services

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// TimestampReferenceGenerator produces references of the form
// prefix + yymmddHHMMSS + 8 random hex characters, e.g. TRF2508301542071A3F09B2.
type TimestampReferenceGenerator struct {
	prefix string
}

func NewTimestampReferenceGenerator(prefix string) *TimestampReferenceGenerator {
	return &TimestampReferenceGenerator{prefix: strings.ToUpper(strings.TrimSpace(prefix))}
}

func (g *TimestampReferenceGenerator) Generate(now time.Time) string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)

	return g.prefix + now.UTC().Format("060102150405") + strings.ToUpper(hex.EncodeToString(suffix))
}
