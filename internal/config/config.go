package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	SMS       SMSConfig
	Email     EmailConfig
	Payment   PaymentConfig
	Booking   BookingConfig
	Search    SearchConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Metrics   MetricsConfig
	Cron      CronConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	AutoMigrate        bool
}

// RedisConfig holds redis connection settings. An empty Addr disables
// the search cache, idempotency guard, inventory events and rate limiting.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a redis address was configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTokenExpiry time.Duration
}

// SMSConfig holds Dialog SMS gateway configuration used for booking confirmations
type SMSConfig struct {
	Enabled  bool
	APIURL   string
	Username string
	Password string
	Mask     string
}

// EmailConfig holds SMTP settings for booking confirmation emails
type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// PaymentConfig holds PAYable IPG configuration
type PaymentConfig struct {
	Environment   string // "sandbox" or "production"
	MerchantKey   string
	MerchantToken string // never sent to the gateway, only used for checkValue
	Currency      string
}

// Configured reports whether real merchant credentials are present
func (p PaymentConfig) Configured() bool {
	return p.MerchantKey != "" && p.MerchantToken != ""
}

// BookingConfig holds the booking orchestrator tuning knobs
type BookingConfig struct {
	MaxCommitAttempts   int
	PaymentTimeout      time.Duration
	NotificationWorkers int
	NotificationQueue   int
	NotificationTimeout time.Duration
	IdempotencyTTL      time.Duration
}

// SearchConfig holds trip search settings
type SearchConfig struct {
	CacheTTL time.Duration
}

// RateLimitConfig holds rate limiting configuration for booking routes
type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// MetricsConfig holds /metrics basic auth settings.
// PasswordHash is a bcrypt hash, see cmd/generate-secrets.
type MetricsConfig struct {
	User         string
	PasswordHash string
}

// AuthEnabled reports whether /metrics requires basic auth
func (m MetricsConfig) AuthEnabled() bool {
	return m.User != "" && m.PasswordHash != ""
}

// CronConfig holds background job schedules (6-field, with seconds)
type CronConfig struct {
	Enabled            bool
	DepartureSchedule  string
	ReconcileSchedule  string
	ReconcileAheadDays int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			AutoMigrate:        getEnvAsBool("DATABASE_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			Issuer:            getEnv("JWT_ISSUER", "smarttransit-seat-reservation"),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		SMS: SMSConfig{
			Enabled:  getEnvAsBool("SMS_NOTIFICATIONS_ENABLED", false),
			APIURL:   getEnv("DIALOG_SMS_API_URL", "https://e-sms.dialog.lk/api/v2"),
			Username: getEnv("DIALOG_SMS_USERNAME", ""),
			Password: getEnv("DIALOG_SMS_PASSWORD", ""),
			Mask:     getEnv("DIALOG_SMS_MASK", ""),
		},
		Email: EmailConfig{
			Enabled:  getEnvAsBool("EMAIL_NOTIFICATIONS_ENABLED", false),
			Host:     getEnv("SMTP_HOST", "smtp.elasticemail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 2525),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		Payment: PaymentConfig{
			Environment:   getEnv("PAYABLE_ENVIRONMENT", "sandbox"),
			MerchantKey:   getEnv("PAYABLE_MERCHANT_KEY", ""),
			MerchantToken: getEnv("PAYABLE_MERCHANT_TOKEN", ""),
			Currency:      getEnv("PAYMENT_CURRENCY", "LKR"),
		},
		Booking: BookingConfig{
			MaxCommitAttempts:   getEnvAsInt("BOOKING_MAX_COMMIT_ATTEMPTS", 3),
			PaymentTimeout:      getEnvAsDuration("BOOKING_PAYMENT_TIMEOUT", 15*time.Second),
			NotificationWorkers: getEnvAsInt("NOTIFICATION_WORKERS", 4),
			NotificationQueue:   getEnvAsInt("NOTIFICATION_QUEUE_SIZE", 256),
			NotificationTimeout: getEnvAsDuration("NOTIFICATION_TIMEOUT", 10*time.Second),
			IdempotencyTTL:      getEnvAsDuration("BOOKING_IDEMPOTENCY_TTL", 2*time.Minute),
		},
		Search: SearchConfig{
			CacheTTL: getEnvAsDuration("SEARCH_CACHE_TTL", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 20),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "Idempotency-Key"}),
		},
		Metrics: MetricsConfig{
			User:         getEnv("METRICS_USER", ""),
			PasswordHash: getEnv("METRICS_PASSWORD_HASH", ""),
		},
		Cron: CronConfig{
			Enabled:            getEnvAsBool("CRON_ENABLED", true),
			DepartureSchedule:  getEnv("CRON_DEPARTURE_SCHEDULE", "0 */5 * * * *"),
			ReconcileSchedule:  getEnv("CRON_RECONCILE_SCHEDULE", "0 0 * * * *"),
			ReconcileAheadDays: getEnvAsInt("CRON_RECONCILE_AHEAD_DAYS", 7),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Booking.MaxCommitAttempts < 1 || c.Booking.MaxCommitAttempts > 5 {
		return fmt.Errorf("BOOKING_MAX_COMMIT_ATTEMPTS must be between 1 and 5, got %d", c.Booking.MaxCommitAttempts)
	}

	if c.Booking.PaymentTimeout <= 0 {
		return fmt.Errorf("BOOKING_PAYMENT_TIMEOUT must be positive")
	}

	if c.Booking.NotificationWorkers < 1 {
		return fmt.Errorf("NOTIFICATION_WORKERS must be at least 1")
	}

	if c.Payment.Environment == "production" && !c.Payment.Configured() {
		return fmt.Errorf("PAYABLE_MERCHANT_KEY and PAYABLE_MERCHANT_TOKEN are required in production")
	}

	if c.SMS.Enabled && (c.SMS.Username == "" || c.SMS.Password == "") {
		return fmt.Errorf("DIALOG_SMS_USERNAME and DIALOG_SMS_PASSWORD are required when SMS notifications are enabled")
	}

	if c.Email.Enabled && (c.Email.Host == "" || c.Email.From == "") {
		return fmt.Errorf("SMTP_HOST and SMTP_FROM are required when email notifications are enabled")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("15s", "2m")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
