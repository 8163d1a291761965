package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Collaborators
	BackendMode      string // "api" or "postgres"
	BackendBaseURL   string
	BackendAPIKey    string
	BackendTimeout   time.Duration
	DatabaseURL      string
	AuditDatabaseURL string

	// Booking flow
	BookingTimezone      string
	BookingSessionTTL    time.Duration
	SlotFetchTimeout     time.Duration
	SubmitTimeout        time.Duration
	SubmitLockTTL        time.Duration
	CatalogCacheTTL      time.Duration
	CurrencyLocale       string
	CurrencySymbol       string
	ConfirmationSubject  string
	ConfirmationFromName string
	OpsAlertEmail        string
	SessionSweepInterval time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// AWS
	AWSRegion             string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	AWSEndpointOverride   string
	BookingEventsQueueURL string
	SESFromEmail          string
	EmailProvider         string // "sendgrid", "ses" or "stub"
	SendGridAPIKey        string
	SendGridFromEmail     string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		BackendMode:      strings.ToLower(strings.TrimSpace(getEnv("BACKEND_MODE", "api"))),
		BackendBaseURL:   strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:3000/api"), "/"),
		BackendAPIKey:    getEnv("BACKEND_API_KEY", ""),
		BackendTimeout:   getEnvAsDuration("BACKEND_TIMEOUT", 10*time.Second),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		AuditDatabaseURL: getEnv("AUDIT_DATABASE_URL", ""),

		BookingTimezone:      getEnv("BOOKING_TIMEZONE", ""),
		BookingSessionTTL:    getEnvAsDuration("BOOKING_SESSION_TTL", 30*time.Minute),
		SlotFetchTimeout:     getEnvAsDuration("SLOT_FETCH_TIMEOUT", 8*time.Second),
		SubmitTimeout:        getEnvAsDuration("SUBMIT_TIMEOUT", 15*time.Second),
		SubmitLockTTL:        getEnvAsDuration("SUBMIT_LOCK_TTL", 30*time.Second),
		CatalogCacheTTL:      getEnvAsDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		CurrencyLocale:       getEnv("CURRENCY_LOCALE", "pt-BR"),
		CurrencySymbol:       getEnv("CURRENCY_SYMBOL", "R$"),
		ConfirmationSubject:  getEnv("CONFIRMATION_SUBJECT", "Appointment request received"),
		ConfirmationFromName: getEnv("CONFIRMATION_FROM_NAME", "Clinic Booking"),
		OpsAlertEmail:        getEnv("OPS_ALERT_EMAIL", ""),
		SessionSweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:   getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BookingEventsQueueURL: getEnv("BOOKING_EVENTS_QUEUE_URL", ""),
		SESFromEmail:          getEnv("SES_FROM_EMAIL", ""),
		EmailProvider:         strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:        getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:     getEnv("SENDGRID_FROM_EMAIL", ""),
	}
}

// Location resolves BookingTimezone, falling back to the server's local zone.
func (c *Config) Location() *time.Location {
	if c.BookingTimezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.BookingTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
