// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Journal backends.
const (
	JournalMemory   = "memory"
	JournalSQLite   = "sqlite"
	JournalPostgres = "postgres"
)

type Config struct {
	Addr          string
	Env           string
	Seed          bool
	StrictDeletes bool
	LoanDays      int

	Journal    string
	JournalDSN string

	RedisAddr    string
	RedisChannel string

	RateLimit float64
	RateBurst int

	OTelEnabled  bool
	OTelEndpoint string
	OTelInsecure bool

	ServerURL string
}

// Load reads a .env file when one exists and then the environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	var errs []error
	cfg := Config{
		Addr:          getEnv("LIBRADESK_ADDR", ":8080"),
		Env:           getEnv("LIBRADESK_ENV", "dev"),
		Seed:          getBool("LIBRADESK_SEED", true, &errs),
		StrictDeletes: getBool("LIBRADESK_STRICT_DELETES", false, &errs),
		LoanDays:      getInt("LIBRADESK_LOAN_DAYS", 14, &errs),
		Journal:       strings.ToLower(getEnv("LIBRADESK_JOURNAL", JournalMemory)),
		JournalDSN:    getEnv("LIBRADESK_JOURNAL_DSN", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisChannel:  getEnv("REDIS_CHANNEL", "libradesk.activity"),
		RateLimit:     getFloat("LIBRADESK_RATE_LIMIT", 20, &errs),
		RateBurst:     getInt("LIBRADESK_RATE_BURST", 40, &errs),
		OTelEnabled:   getBool("OTEL_ENABLED", false, &errs),
		OTelEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTelInsecure:  getBool("OTEL_EXPORTER_OTLP_INSECURE", true, &errs),
		ServerURL:     getEnv("LIBRADESK_SERVER_URL", "http://localhost:8080"),
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks values that cannot be caught while parsing.
func (c Config) Validate() error {
	switch c.Journal {
	case JournalMemory:
	case JournalSQLite, JournalPostgres:
		if c.JournalDSN == "" {
			return fmt.Errorf("LIBRADESK_JOURNAL_DSN is required for the %s journal", c.Journal)
		}
	default:
		return fmt.Errorf("unknown journal backend %q", c.Journal)
	}
	if c.LoanDays <= 0 {
		return fmt.Errorf("LIBRADESK_LOAN_DAYS must be positive, got %d", c.LoanDays)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("LIBRADESK_RATE_LIMIT must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getBool(key string, fallback bool, errs *[]error) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return fallback
	}
	return v
}

func getInt(key string, fallback int, errs *[]error) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid number %q", key, raw))
		return fallback
	}
	return v
}
