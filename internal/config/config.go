package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Defaults for the lending policy knobs. All of them can be overridden from
// the environment; none of them are decided by the core logic itself.
const (
	DefaultLoanPeriodDays  = 14
	DefaultFinePerDay      = 1
	DefaultLostFine        = 100
	DefaultDebtorsCacheTTL = 60 * time.Second
)

type Config struct {
	DBSource string
	Port     string
	Env      string

	LoanPeriodDays   int
	FinePerDay       int64
	LostFine         int64
	DebtorsCacheTTL  time.Duration
	DebtorsCacheFile string
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	loanPeriod, err := envInt("LOAN_PERIOD_DAYS", DefaultLoanPeriodDays)
	if err != nil {
		return nil, err
	}
	finePerDay, err := envInt("FINE_PER_DAY", DefaultFinePerDay)
	if err != nil {
		return nil, err
	}
	lostFine, err := envInt("LOST_FINE", DefaultLostFine)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := envDuration("DEBTORS_CACHE_TTL", DefaultDebtorsCacheTTL)
	if err != nil {
		return nil, err
	}

	return &Config{
		DBSource:         dbSource,
		Port:             port,
		Env:              env,
		LoanPeriodDays:   loanPeriod,
		FinePerDay:       int64(finePerDay),
		LostFine:         int64(lostFine),
		DebtorsCacheTTL:  cacheTTL,
		DebtorsCacheFile: os.Getenv("DEBTORS_CACHE_FILE"),
	}, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	// Accept a bare number of seconds as well as a Go duration string.
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
