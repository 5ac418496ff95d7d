package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	Env  string
	Port string

	DatabaseURL string
	RedisURL    string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	BaseURL   string
	UploadDir string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string

	PaymentBaseURL     string
	PaymentAPIKey      string
	PaymentAPISecret   string
	PaymentCallbackKey string
	PaymentStubMode    bool

	ExtractURL      string
	ExtractSecret   string
	ExtractStubMode bool

	SweepTimezone string
	LogLevel      string
	LogFormat     string
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Env:  getEnvWithDefault("ENV", "development"),
		Port: getEnvWithDefault("PORT", "8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  getDurationWithDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDurationWithDefault("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		BaseURL:   getEnvWithDefault("BASE_URL", "http://localhost:8080"),
		UploadDir: getEnvWithDefault("UPLOAD_DIR", "./uploads"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnvWithDefault("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: getEnvWithDefault("MAIL_FROM", "no-reply@rentdesk.local"),

		PaymentBaseURL:     os.Getenv("PAYMENT_BASE_URL"),
		PaymentAPIKey:      os.Getenv("PAYMENT_API_KEY"),
		PaymentAPISecret:   os.Getenv("PAYMENT_API_SECRET"),
		PaymentCallbackKey: os.Getenv("PAYMENT_CALLBACK_KEY"),
		PaymentStubMode:    getBoolWithDefault("PAYMENT_STUB_MODE", true),

		ExtractURL:      os.Getenv("EXTRACT_URL"),
		ExtractSecret:   os.Getenv("EXTRACT_SECRET"),
		ExtractStubMode: getBoolWithDefault("EXTRACT_STUB_MODE", true),

		SweepTimezone: getEnvWithDefault("SWEEP_TIMEZONE", "Europe/Istanbul"),
		LogLevel:      getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:     getEnvWithDefault("LOG_FORMAT", "text"),
	}

	// Warn if using default JWT secret (insecure for production)
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"
		log.Println("WARNING: Using default JWT_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	return cfg
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("WARNING: invalid duration in %s, using default %s", key, defaultValue)
	}
	return defaultValue
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
