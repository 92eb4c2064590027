// Package config loads service configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/crossledger/reconciler/internal/domain"
)

type Config struct {
	Port            string
	DBPath          string
	LogLevel        string
	AmountTolerance decimal.Decimal
	DateWindowDays  int
	SeedPath        string
}

// Load reads configuration from the environment. If envFile is non-empty and
// exists it is loaded first; missing files are ignored so container
// deployments can rely on real environment variables.
func Load(envFile string) *Config {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBPath:          getEnv("DB_PATH", "reconciler.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		AmountTolerance: getEnvAsDecimal("AMOUNT_TOLERANCE", domain.DefaultAmountTolerance),
		DateWindowDays:  getEnvAsInt("DATE_WINDOW_DAYS", domain.DefaultDateWindowDays),
		SeedPath:        getEnv("SEED_PATH", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvAsDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && d.IsPositive() {
			return d
		}
	}
	return fallback
}
