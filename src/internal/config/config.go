package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/api-sage/transfer-ledger/src/internal/logger"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=transfer_ledger_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"

const (
	defaultHomeCurrency      = "USD"
	defaultMinAmount         = "100"
	defaultMaxAmount         = "500000"
	defaultBaseFee           = "25"
	defaultPercentageFee     = "0.001"
	defaultForeignSurcharge  = "20"
	defaultMaxFee            = "100"
	defaultDailyLimit        = "50000"
	defaultDomesticDays      = 1
	defaultInternationalDays = 3
	defaultReferencePrefix   = "TRF"
	defaultReferenceRetries  = 5
	defaultSettlementQueue   = "transfer_ledger.settlement_events"
)

type Config struct {
	DatabaseDSN   string
	MigrationsDir string

	HomeCurrency      string
	MinAmount         decimal.Decimal
	MaxAmount         decimal.Decimal
	BaseFee           decimal.Decimal
	PercentageFee     decimal.Decimal
	ForeignSurcharge  decimal.Decimal
	MaxFee            decimal.Decimal
	DailyLimit        decimal.Decimal
	DomesticDays      int
	InternationalDays int

	ReferencePrefix      string
	ReferenceMaxAttempts int

	AMQPURL         string
	SettlementQueue string
}

func Load() (Config, error) {
	// .env is optional; production relies on real environment variables.
	if err := godotenv.Load(); err != nil {
		logger.Info("config no .env file found, using environment variables", nil)
	}

	conn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if conn == "" {
		conn = defaultConnectionString
	}

	cfg := Config{
		DatabaseDSN:          normalizeConnectionString(conn),
		MigrationsDir:        filepath.Join("src", "migrations"),
		HomeCurrency:         envOrDefault("HOME_CURRENCY", defaultHomeCurrency),
		MinAmount:            envDecimal("TRANSFER_MIN_AMOUNT", defaultMinAmount),
		MaxAmount:            envDecimal("TRANSFER_MAX_AMOUNT", defaultMaxAmount),
		BaseFee:              envDecimal("TRANSFER_BASE_FEE", defaultBaseFee),
		PercentageFee:        envDecimal("TRANSFER_PERCENTAGE_FEE", defaultPercentageFee),
		ForeignSurcharge:     envDecimal("TRANSFER_FOREIGN_SURCHARGE", defaultForeignSurcharge),
		MaxFee:               envDecimal("TRANSFER_MAX_FEE", defaultMaxFee),
		DailyLimit:           envDecimal("TRANSFER_DAILY_LIMIT", defaultDailyLimit),
		DomesticDays:         envInt("TRANSFER_DOMESTIC_DAYS", defaultDomesticDays),
		InternationalDays:    envInt("TRANSFER_INTERNATIONAL_DAYS", defaultInternationalDays),
		ReferencePrefix:      envOrDefault("TRANSFER_REFERENCE_PREFIX", defaultReferencePrefix),
		ReferenceMaxAttempts: envInt("TRANSFER_REFERENCE_MAX_ATTEMPTS", defaultReferenceRetries),
		AMQPURL:              strings.TrimSpace(os.Getenv("AMQP_URL")),
		SettlementQueue:      envOrDefault("SETTLEMENT_EVENT_QUEUE", defaultSettlementQueue),
	}

	cfg.HomeCurrency = strings.ToUpper(cfg.HomeCurrency)

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envDecimal(key, fallback string) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		raw = fallback
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		logger.Error("config invalid decimal value, using default", err, logger.Fields{
			"key":     key,
			"value":   raw,
			"default": fallback,
		})
		value, _ = decimal.NewFromString(fallback)
	}

	return value
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		logger.Error("config invalid integer value, using default", err, logger.Fields{
			"key":     key,
			"value":   raw,
			"default": fallback,
		})
		return fallback
	}

	return value
}

func normalizeConnectionString(raw string) string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
