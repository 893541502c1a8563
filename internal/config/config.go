// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Security
	OperatorSecret string // shared secret for the platform operator surface
	RateLimitRPM   int

	// Overage pricing table: per-unit price charged when a school in overage
	// mode exceeds a finite limit. Decimal strings, price per single unit.
	OveragePriceStudents  string
	OveragePriceTeachers  string
	OveragePriceInvoices  string
	OveragePriceStorageGB string

	// Payment confirmations
	StripeWebhookSecret string // verifies inbound payment-confirmation webhooks

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint; empty disables tracing
}

// Defaults
const (
	DefaultPort         = "8080"
	DefaultEnv          = "development"
	DefaultLogLevel     = "info"
	DefaultRateLimitRPM = 300

	DefaultOveragePriceStudents  = "0.50"
	DefaultOveragePriceTeachers  = "1.00"
	DefaultOveragePriceInvoices  = "0.10"
	DefaultOveragePriceStorageGB = "2.00"
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", DefaultPort),
		Env:                   getEnv("ENV", DefaultEnv),
		LogLevel:              getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:           os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		OperatorSecret:        os.Getenv("OPERATOR_SECRET"),
		RateLimitRPM:          getEnvInt("RATE_LIMIT_RPM", DefaultRateLimitRPM),
		OveragePriceStudents:  getEnv("OVERAGE_PRICE_STUDENTS", DefaultOveragePriceStudents),
		OveragePriceTeachers:  getEnv("OVERAGE_PRICE_TEACHERS", DefaultOveragePriceTeachers),
		OveragePriceInvoices:  getEnv("OVERAGE_PRICE_INVOICES", DefaultOveragePriceInvoices),
		OveragePriceStorageGB: getEnv("OVERAGE_PRICE_STORAGE_GB", DefaultOveragePriceStorageGB),
		StripeWebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		OTLPEndpoint:          os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and well-formed
func (c *Config) Validate() error {
	if c.IsProduction() && c.OperatorSecret == "" {
		return fmt.Errorf("OPERATOR_SECRET is required in production")
	}

	for name, price := range map[string]string{
		"OVERAGE_PRICE_STUDENTS":   c.OveragePriceStudents,
		"OVERAGE_PRICE_TEACHERS":   c.OveragePriceTeachers,
		"OVERAGE_PRICE_INVOICES":   c.OveragePriceInvoices,
		"OVERAGE_PRICE_STORAGE_GB": c.OveragePriceStorageGB,
	} {
		f, err := strconv.ParseFloat(price, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%s must be a non-negative decimal, got %q", name, price)
		}
	}

	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
