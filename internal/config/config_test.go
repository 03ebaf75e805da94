package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{URL: "postgres://localhost/seats"},
		JWT:      JWTConfig{Secret: "secret"},
		Payment:  PaymentConfig{Environment: "sandbox"},
		Booking: BookingConfig{
			MaxCommitAttempts:   3,
			PaymentTimeout:      15 * time.Second,
			NotificationWorkers: 2,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Valid", func(c *Config) {}, ""},
		{"Missing database URL", func(c *Config) { c.Database.URL = "" }, "DATABASE_URL"},
		{"Missing JWT secret", func(c *Config) { c.JWT.Secret = "" }, "JWT_SECRET"},
		{"Zero commit attempts", func(c *Config) { c.Booking.MaxCommitAttempts = 0 }, "BOOKING_MAX_COMMIT_ATTEMPTS"},
		{"Too many commit attempts", func(c *Config) { c.Booking.MaxCommitAttempts = 6 }, "BOOKING_MAX_COMMIT_ATTEMPTS"},
		{"Zero payment timeout", func(c *Config) { c.Booking.PaymentTimeout = 0 }, "BOOKING_PAYMENT_TIMEOUT"},
		{"Production without merchant", func(c *Config) { c.Payment.Environment = "production" }, "PAYABLE_MERCHANT_KEY"},
		{"SMS enabled without credentials", func(c *Config) { c.SMS.Enabled = true }, "DIALOG_SMS_USERNAME"},
		{"Email enabled without sender", func(c *Config) { c.Email.Enabled = true; c.Email.Host = "smtp" }, "SMTP_FROM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_SLICE", " a, b ,,c ")
	t.Setenv("TEST_DURATION", "250ms")
	t.Setenv("TEST_BAD_INT", "abc")

	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsSlice("TEST_SLICE", nil))
	assert.Equal(t, 250*time.Millisecond, getEnvAsDuration("TEST_DURATION", time.Second))
	assert.Equal(t, 7, getEnvAsInt("TEST_BAD_INT", 7))
	assert.True(t, getEnvAsBool("TEST_UNSET_BOOL", true))
}

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/seats")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BOOKING_MAX_COMMIT_ATTEMPTS", "4")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Booking.MaxCommitAttempts)
	assert.True(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Payment.Configured())
	assert.Equal(t, "LKR", cfg.Payment.Currency)
}
