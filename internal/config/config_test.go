package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_WithValidConfig(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "OVERAGE_PRICE_STUDENTS", "0.75")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "0.75", cfg.OveragePriceStudents)
	assert.Equal(t, DefaultOveragePriceTeachers, cfg.OveragePriceTeachers)
	assert.Equal(t, DefaultRateLimitRPM, cfg.RateLimitRPM)
}

func TestLoad_InvalidOveragePrice(t *testing.T) {
	setEnv(t, "OVERAGE_PRICE_INVOICES", "free")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "OVERAGE_PRICE_INVOICES")
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Env:                   "development",
		RateLimitRPM:          300,
		OveragePriceStudents:  "0.50",
		OveragePriceTeachers:  "1.00",
		OveragePriceInvoices:  "0.10",
		OveragePriceStorageGB: "2.00",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name: "production requires operator secret",
			mutate: func(c *Config) {
				c.Env = "production"
				c.OperatorSecret = ""
			},
			wantErr: "OPERATOR_SECRET is required",
		},
		{
			name: "negative overage price",
			mutate: func(c *Config) {
				c.OveragePriceStorageGB = "-2.00"
			},
			wantErr: "OVERAGE_PRICE_STORAGE_GB",
		},
		{
			name: "zero rate limit",
			mutate: func(c *Config) {
				c.RateLimitRPM = 0
			},
			wantErr: "RATE_LIMIT_RPM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnv(t *testing.T) {
	setEnv(t, "TEST_VAR", "custom_value")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))
}

func TestGetEnvInt(t *testing.T) {
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, 42, getEnvInt("TEST_INT", 0))
	assert.Equal(t, 99, getEnvInt("NONEXISTENT_VAR", 99))
	assert.Equal(t, 99, getEnvInt("TEST_INVALID", 99)) // Falls back on parse error
}
